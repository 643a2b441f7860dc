// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckeychain.
//
// go-seckeychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.
// Package keychain is a secure storage façade over a platform item store and
// an asymmetric cipher. It saves, loads, updates and deletes records, encrypts
// payloads to hardware backed keypairs, self-tests the secure element, and
// rotates the keypair protecting an item from one authentication context to
// another.
//
// Every operation is scoped to the access group the Keychain was created
// with. Failures are returned as *Error; match them with errors.Is against
// the package sentinels or inspect them with KindOf:
//
//	item, err := kc.LoadAndDecrypt(keys.Private(), record.BlobRef("token", ""), ctx)
//	switch {
//	case errors.Is(err, keychain.ErrNotFound):
//		// nothing saved yet
//	case errors.Is(err, keychain.ErrAuthentication):
//		// wrong password or biometry changed
//	}
//
// Operations are short sequences of single item store calls without
// transactions. Generate cleans up after itself and Change keeps a verified
// backup across its destructive phase; see Change for the recovery contract.
// Concurrent mutations of the same identities are not coordinated.
package keychain
