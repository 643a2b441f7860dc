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

// Package encoding converts elliptic curve keys to and from their
// interchange formats: PKCS#8 DER for private keys held in conventional
// storage, and PKIX or PEM for exported public keys.
package encoding

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EncodePrivateKey encodes an EC private key to PKCS#8 DER. A non-empty
// password produces an encrypted PKCS#8 structure.
func EncodePrivateKey(privateKey *ecdsa.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}
	return der, nil
}

// DecodePrivateKey decodes PKCS#8 DER produced by EncodePrivateKey.
func DecodePrivateKey(data []byte, password []byte) (*ecdsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	key, err := pkcs8.ParsePKCS8PrivateKeyECDSA(data, password)
	if err != nil {
		if isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("%w: failed to parse PKCS#8: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// EncodePublicKeyPKIX encodes an EC public key as SubjectPublicKeyInfo DER.
func EncodePublicKeyPKIX(publicKey *ecdsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKIX public key: %w", err)
	}
	return der, nil
}

// DecodePublicKeyPKIX decodes SubjectPublicKeyInfo DER holding an EC key.
func DecodePublicKeyPKIX(data []byte) (*ecdsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKIX public key: %w", err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPublicKey
	}
	return ecPub, nil
}

// isPasswordError reports whether err from youmark/pkcs8 indicates a wrong
// or missing password.
func isPasswordError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"incorrect password", "password"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
