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
	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/metrics"
	"github.com/jeremyhahn/go-seckeychain/pkg/record"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// Encrypt seals the payload of digest to the public key pub and returns
// digest carrying the ciphertext. pub is loaded under ctx when it holds no
// handle.
func (k *Keychain) Encrypt(pub, digest record.Record, ctx *auth.Context) (record.Record, error) {
	var out record.Record
	err := k.instrument(metrics.OpEncrypt, func() error {
		var err error
		out, err = k.encrypt(pub, digest, ctx)
		return err
	})
	return out, err
}

func (k *Keychain) encrypt(pub, digest record.Record, ctx *auth.Context) (record.Record, error) {
	key, err := k.resolve(pub, ctx)
	if err != nil {
		return nil, err
	}
	data, ok := record.DataOf(digest)
	if !ok {
		return nil, general(nil, "Empty data.")
	}

	encrypted, err := k.cipher.Encrypt(key, k.algorithm, data)
	if err != nil {
		return nil, fromError(err, "Could not encrypt.")
	}
	updated, ok := record.WithData(digest, encrypted)
	if !ok {
		return nil, general(nil, "Internal error")
	}
	return updated, nil
}

// Decrypt opens the payload of encrypted with the private key prv and
// returns encrypted carrying the plaintext. Protected keys are authorized
// against ctx.
func (k *Keychain) Decrypt(prv, encrypted record.Record, ctx *auth.Context) (record.Record, error) {
	var out record.Record
	err := k.instrument(metrics.OpDecrypt, func() error {
		var err error
		out, err = k.decrypt(prv, encrypted, ctx)
		return err
	})
	return out, err
}

func (k *Keychain) decrypt(prv, encrypted record.Record, ctx *auth.Context) (record.Record, error) {
	key, err := k.resolve(prv, ctx)
	if err != nil {
		return nil, err
	}
	data, ok := record.DataOf(encrypted)
	if !ok {
		return nil, general(nil, "Empty data.")
	}

	decrypted, err := k.cipher.Decrypt(key, k.algorithm, data)
	if err != nil {
		return nil, fromError(err, "Could not decrypt.")
	}
	updated, ok := record.WithData(encrypted, decrypted)
	if !ok {
		return nil, general(nil, "Internal error")
	}
	return updated, nil
}

// EncryptAndSave encrypts item to pub and saves it. It fails with
// KindDuplicateItem before encrypting when item already exists.
func (k *Keychain) EncryptAndSave(pub, item record.Record, ctx *auth.Context) error {
	return k.instrument(metrics.OpEncryptAndSave, func() error {
		return k.encryptAndSave(pub, item, ctx)
	})
}

func (k *Keychain) encryptAndSave(pub, item record.Record, ctx *auth.Context) error {
	if err := k.validateNotFound(item, ctx); err != nil {
		return err
	}
	encrypted, err := k.encrypt(pub, item, ctx)
	if err != nil {
		return err
	}
	return k.save(encrypted)
}

// LoadAndDecrypt loads item by identity and decrypts it with prv.
func (k *Keychain) LoadAndDecrypt(prv, item record.Record, ctx *auth.Context) (record.Record, error) {
	var out record.Record
	err := k.instrument(metrics.OpLoadAndDecrypt, func() error {
		var err error
		out, err = k.loadAndDecrypt(prv, item, ctx)
		return err
	})
	return out, err
}

func (k *Keychain) loadAndDecrypt(prv, item record.Record, ctx *auth.Context) (record.Record, error) {
	encrypted, err := k.load(item, ctx)
	if err != nil {
		return nil, err
	}
	return k.decrypt(prv, encrypted, ctx)
}

// resolve returns the live handle of a key record, loading it when the
// record is a template.
func (k *Keychain) resolve(r record.Record, ctx *auth.Context) (securestore.KeyHandle, error) {
	if key := record.KeyOf(r); key != nil {
		return key, nil
	}
	loaded, err := k.load(r, ctx)
	if err != nil {
		return nil, err
	}
	key := record.KeyOf(loaded)
	if key == nil {
		return nil, notFound(nil, "Couldn't find a key: %s", r)
	}
	return key, nil
}
