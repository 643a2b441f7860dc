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

// Package ecdh provides the Elliptic Curve Diffie-Hellman key agreement and
// the key derivation functions used by the keychain's asymmetric cipher.
//
// Two derivations are offered. DeriveKey is HKDF-SHA256. DeriveKeyX963 is the
// ANSI X9.63 KDF over SHA-256, which is what platform secure elements use for
// their cofactor ECIES suite, so ciphertexts are interchangeable with them.
//
//	shared, _ := ecdh.DeriveSharedSecret(ephemeralPriv, recipientPub)
//	key, _ := ecdh.DeriveKeyX963(shared, ephemeralPubBytes, 16)
package ecdh

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSharedSecret performs ECDH key agreement between a private key and
// a public key, returning the raw shared secret (the x coordinate).
//
// The NIST prime curves have cofactor 1, so this is also the cofactor ECDH
// primitive.
func DeriveSharedSecret(privateKey *ecdsa.PrivateKey, publicKey *ecdsa.PublicKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if publicKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	if privateKey.Curve != publicKey.Curve {
		return nil, fmt.Errorf("curve mismatch: private key uses %s, public key uses %s",
			privateKey.Curve.Params().Name, publicKey.Curve.Params().Name)
	}

	ecdhPriv, err := privateKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}
	ecdhPub, err := publicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	sharedSecret, err := ecdhPriv.ECDH(ecdhPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH operation failed: %w", err)
	}
	return sharedSecret, nil
}

// DeriveKey derives a key of the specified length from a shared secret using
// HKDF-SHA256. Different info values produce independent keys from the same
// secret.
func DeriveKey(sharedSecret, salt, info []byte, keyLength int) ([]byte, error) {
	if sharedSecret == nil {
		return nil, fmt.Errorf("shared secret cannot be nil")
	}
	if keyLength <= 0 {
		return nil, fmt.Errorf("key length must be positive, got %d", keyLength)
	}

	hkdfReader := hkdf.New(sha256.New, sharedSecret, salt, info)

	derivedKey := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdfReader, derivedKey); err != nil {
		return nil, fmt.Errorf("HKDF derivation failed: %w", err)
	}
	return derivedKey, nil
}

// DeriveKeyX963 derives a key using the ANSI X9.63 KDF with SHA-256:
//
//	K = SHA256(Z || counter || sharedInfo) || SHA256(Z || counter+1 || sharedInfo) ...
//
// with a big endian 32-bit counter starting at 1.
func DeriveKeyX963(sharedSecret, sharedInfo []byte, keyLength int) ([]byte, error) {
	if sharedSecret == nil {
		return nil, fmt.Errorf("shared secret cannot be nil")
	}
	if keyLength <= 0 {
		return nil, fmt.Errorf("key length must be positive, got %d", keyLength)
	}

	out := make([]byte, 0, keyLength+sha256.Size)
	var counter [4]byte
	for i := uint32(1); len(out) < keyLength; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h := sha256.New()
		h.Write(sharedSecret)
		h.Write(counter[:])
		h.Write(sharedInfo)
		out = h.Sum(out)
	}
	return out[:keyLength], nil
}

// MarshalPublicKey encodes a public key as an uncompressed SEC 1 point.
func MarshalPublicKey(key *ecdsa.PublicKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	pub, err := key.ECDH()
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}
	return pub.Bytes(), nil
}

// ParsePublicKey decodes an uncompressed SEC 1 point on curve.
func ParsePublicKey(curve elliptic.Curve, data []byte) (*ecdsa.PublicKey, error) {
	if _, err := curveToECDH(curve); err != nil {
		return nil, err
	}
	key, err := ecdsa.ParseUncompressedPublicKey(curve, data)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return key, nil
}

// PublicKeySize returns the size of an uncompressed point on curve, or 0 for
// unsupported curves.
func PublicKeySize(curve elliptic.Curve) int {
	switch curve.Params().Name {
	case "P-256":
		return 65
	case "P-384":
		return 97
	case "P-521":
		return 133
	default:
		return 0
	}
}

func curveToECDH(curve elliptic.Curve) (ecdh.Curve, error) {
	switch curve.Params().Name {
	case "P-256":
		return ecdh.P256(), nil
	case "P-384":
		return ecdh.P384(), nil
	case "P-521":
		return ecdh.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported curve: %s", curve.Params().Name)
	}
}
