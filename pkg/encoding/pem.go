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

package encoding

import (
	"crypto/ecdsa"
	"encoding/pem"
)

const (
	pemTypePublicKey           = "PUBLIC KEY"
	pemTypePrivateKey          = "PRIVATE KEY"
	pemTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

// EncodePublicKeyPEM encodes an EC public key as a PKIX PEM block.
func EncodePublicKeyPEM(publicKey *ecdsa.PublicKey) ([]byte, error) {
	der, err := EncodePublicKeyPKIX(publicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der}), nil
}

// DecodePublicKeyPEM decodes a PKIX PEM block holding an EC public key.
func DecodePublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublicKey {
		return nil, ErrInvalidPEMEncoding
	}
	return DecodePublicKeyPKIX(block.Bytes)
}

// EncodePrivateKeyPEM encodes an EC private key as a PKCS#8 PEM block,
// encrypted when password is non-empty.
func EncodePrivateKeyPEM(privateKey *ecdsa.PrivateKey, password []byte) ([]byte, error) {
	der, err := EncodePrivateKey(privateKey, password)
	if err != nil {
		return nil, err
	}
	blockType := pemTypePrivateKey
	if len(password) > 0 {
		blockType = pemTypeEncryptedPrivateKey
	}
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), nil
}

// DecodePrivateKeyPEM decodes a PKCS#8 PEM block holding an EC private key.
func DecodePrivateKeyPEM(data []byte, password []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}
	switch block.Type {
	case pemTypePrivateKey, pemTypeEncryptedPrivateKey:
		return DecodePrivateKey(block.Bytes, password)
	default:
		return nil, ErrInvalidPEMEncoding
	}
}
