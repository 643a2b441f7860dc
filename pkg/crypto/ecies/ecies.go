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

// Package ecies provides Elliptic Curve Integrated Encryption Scheme (ECIES)
// public key encryption for ECDSA keys.
//
// Two suites are supported.
//
// SuiteCofactorX963SHA256AESGCM matches the platform secure element suite:
//
//	[ephemeral_public_key || ciphertext || tag]
//
// The AES key is derived with the X9.63 KDF using the ephemeral public key as
// shared info: 16 bytes for P-256, 32 bytes for larger curves. The GCM IV is
// 16 zero bytes, which is safe because every message uses a fresh ephemeral
// key.
//
// SuiteHKDFSHA256AESGCM derives an AES-256 key with HKDF and uses a random
// 12 byte nonce:
//
//	[ephemeral_public_key || nonce || tag || ciphertext]
//
// Example usage:
//
//	ct, _ := ecies.Encrypt(rand.Reader, ecies.SuiteCofactorX963SHA256AESGCM, &priv.PublicKey, msg)
//	pt, _ := ecies.Decrypt(ecies.SuiteCofactorX963SHA256AESGCM, priv, ct)
package ecies

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-seckeychain/pkg/crypto/ecdh"
)

// Suite selects the KDF, key size and wire layout.
type Suite int

const (
	SuiteCofactorX963SHA256AESGCM Suite = iota + 1
	SuiteHKDFSHA256AESGCM
)

func (s Suite) String() string {
	switch s {
	case SuiteCofactorX963SHA256AESGCM:
		return "cofactor-x963-sha256-aesgcm"
	case SuiteHKDFSHA256AESGCM:
		return "hkdf-sha256-aesgcm"
	default:
		return fmt.Sprintf("suite(%d)", int(s))
	}
}

const (
	hkdfKeySize  = 32
	hkdfInfo     = "ecies-encryption"
	nonceSize    = 12
	x963IVSize   = 16
	tagSize      = 16
	x963KeySmall = 16
	x963KeyLarge = 32
)

var (
	// ErrUnsupportedSuite is returned for unknown suites.
	ErrUnsupportedSuite = errors.New("ecies: unsupported suite")

	// ErrCiphertextTooShort is returned when the input cannot hold the
	// ephemeral key and tag.
	ErrCiphertextTooShort = errors.New("ecies: ciphertext too short")

	// ErrAuthentication is returned when the GCM tag does not verify.
	ErrAuthentication = errors.New("ecies: message authentication failed")
)

// Encrypt seals plaintext to the recipient's public key.
func Encrypt(random io.Reader, suite Suite, publicKey *ecdsa.PublicKey, plaintext []byte) ([]byte, error) {
	if random == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}
	if publicKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	if plaintext == nil {
		return nil, fmt.Errorf("plaintext cannot be nil")
	}
	if suite != SuiteCofactorX963SHA256AESGCM && suite != SuiteHKDFSHA256AESGCM {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSuite, suite)
	}

	ephemeralPriv, err := ecdsa.GenerateKey(publicKey.Curve, random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ephemeralPub, err := ecdh.MarshalPublicKey(&ephemeralPriv.PublicKey)
	if err != nil {
		return nil, err
	}

	sharedSecret, err := ecdh.DeriveSharedSecret(ephemeralPriv, publicKey)
	if err != nil {
		return nil, fmt.Errorf("ECDH failed: %w", err)
	}
	defer clear(sharedSecret)

	gcm, err := suiteAEAD(suite, sharedSecret, ephemeralPub, publicKey.Curve.Params().BitSize)
	if err != nil {
		return nil, err
	}

	switch suite {
	case SuiteCofactorX963SHA256AESGCM:
		iv := make([]byte, x963IVSize)
		out := make([]byte, 0, len(ephemeralPub)+len(plaintext)+tagSize)
		out = append(out, ephemeralPub...)
		return gcm.Seal(out, iv, plaintext, nil), nil

	default:
		nonce := make([]byte, nonceSize)
		if _, err := io.ReadFull(random, nonce); err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
		sealed := gcm.Seal(nil, nonce, plaintext, nil)
		ct := sealed[:len(sealed)-tagSize]
		tag := sealed[len(sealed)-tagSize:]

		out := make([]byte, 0, len(ephemeralPub)+nonceSize+tagSize+len(ct))
		out = append(out, ephemeralPub...)
		out = append(out, nonce...)
		out = append(out, tag...)
		return append(out, ct...), nil
	}
}

// Decrypt opens a message produced by Encrypt with the same suite.
func Decrypt(suite Suite, privateKey *ecdsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if ciphertext == nil {
		return nil, fmt.Errorf("ciphertext cannot be nil")
	}

	pubSize := ecdh.PublicKeySize(privateKey.Curve)
	if pubSize == 0 {
		return nil, fmt.Errorf("unsupported curve: %s", privateKey.Curve.Params().Name)
	}

	var minSize int
	switch suite {
	case SuiteCofactorX963SHA256AESGCM:
		minSize = pubSize + tagSize
	case SuiteHKDFSHA256AESGCM:
		minSize = pubSize + nonceSize + tagSize
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSuite, suite)
	}
	if len(ciphertext) < minSize {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrCiphertextTooShort, len(ciphertext), minSize)
	}

	ephemeralBytes := ciphertext[:pubSize]
	ephemeralPub, err := ecdh.ParsePublicKey(privateKey.Curve, ephemeralBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ephemeral public key: %w", err)
	}

	sharedSecret, err := ecdh.DeriveSharedSecret(privateKey, ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH failed: %w", err)
	}
	defer clear(sharedSecret)

	gcm, err := suiteAEAD(suite, sharedSecret, ephemeralBytes, privateKey.Curve.Params().BitSize)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	if suite == SuiteCofactorX963SHA256AESGCM {
		iv := make([]byte, x963IVSize)
		plaintext, err = gcm.Open(nil, iv, ciphertext[pubSize:], nil)
	} else {
		nonce := ciphertext[pubSize : pubSize+nonceSize]
		tag := ciphertext[pubSize+nonceSize : pubSize+nonceSize+tagSize]
		body := ciphertext[pubSize+nonceSize+tagSize:]

		sealed := make([]byte, 0, len(body)+tagSize)
		sealed = append(sealed, body...)
		sealed = append(sealed, tag...)
		plaintext, err = gcm.Open(nil, nonce, sealed, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func suiteAEAD(suite Suite, sharedSecret, ephemeralPub []byte, bitSize int) (cipher.AEAD, error) {
	var (
		key []byte
		err error
	)
	switch suite {
	case SuiteCofactorX963SHA256AESGCM:
		size := x963KeySmall
		if bitSize > 256 {
			size = x963KeyLarge
		}
		key, err = ecdh.DeriveKeyX963(sharedSecret, ephemeralPub, size)
	default:
		key, err = ecdh.DeriveKey(sharedSecret, nil, []byte(hkdfInfo), hkdfKeySize)
	}
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if suite == SuiteCofactorX963SHA256AESGCM {
		return cipher.NewGCMWithNonceSize(block, x963IVSize)
	}
	return cipher.NewGCM(block)
}
