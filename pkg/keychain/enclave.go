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
package keychain

import (
	"bytes"
	"io"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/metrics"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
)

// nonceSize is the size of the self-test plaintext.
const nonceSize = 4

// VerifySecureEnclave round-trips a random nonce through a disposable
// hardware-backed keypair generated under ctx. The keypair is deleted on
// every exit path. Any failure is reported as KindInconsistency: it means
// the secure element cannot be driven with ctx, not that the store is
// temporarily unavailable.
func (k *Keychain) VerifySecureEnclave(ctx *auth.Context) error {
	return k.instrument(metrics.OpVerify, func() error {
		return k.verifySecureEnclave(ctx)
	})
}

func (k *Keychain) verifySecureEnclave(ctx *auth.Context) error {
	id := uuid.NewString()
	kp := record.NewKeypairFromLabels("prv-"+id, "pub-"+id, true)

	if err := k.delete(kp.Private()); err != nil {
		return inconsistency(err, "Can't verify keys")
	}
	if err := k.delete(kp.Public()); err != nil {
		return inconsistency(err, "Can't verify keys")
	}
	defer k.discard(kp.Private(), kp.Public())

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(k.random, nonce); err != nil {
		return inconsistency(err, "Can't verify keys")
	}

	if _, err := k.generate(kp, ctx); err != nil {
		return inconsistency(err, "Can't verify keys")
	}
	encrypted, err := k.encrypt(kp.Public(), record.NewBlob(nonce, "", ""), ctx)
	if err != nil {
		return inconsistency(err, "Can't verify keys")
	}
	decrypted, err := k.decrypt(kp.Private(), encrypted, ctx)
	if err != nil {
		return inconsistency(err, "Can't verify keys")
	}

	data, ok := record.DataOf(decrypted)
	if !ok || !bytes.Equal(data, nonce) {
		return inconsistency(nil, "Can't verify keys")
	}
	k.logger.Debugf("keychain: secure enclave verified with keypair %s", id)
	return nil
}
