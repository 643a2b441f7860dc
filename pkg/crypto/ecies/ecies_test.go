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

package ecies

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suites = []Suite{SuiteCofactorX963SHA256AESGCM, SuiteHKDFSHA256AESGCM}

func TestEncryptDecrypt(t *testing.T) {
	for _, suite := range suites {
		for _, curve := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
			t.Run(suite.String()+"/"+curve.Params().Name, func(t *testing.T) {
				priv, err := ecdsa.GenerateKey(curve, rand.Reader)
				require.NoError(t, err)

				plaintext := []byte("Hello, ECIES!")
				ciphertext, err := Encrypt(rand.Reader, suite, &priv.PublicKey, plaintext)
				require.NoError(t, err)
				assert.NotContains(t, string(ciphertext), string(plaintext))

				decrypted, err := Decrypt(suite, priv, ciphertext)
				require.NoError(t, err)
				assert.Equal(t, plaintext, decrypted)
			})
		}
	}
}

func TestEncrypt_CofactorLayout(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	plaintext := []byte{0, 1, 2, 3, 4}
	ciphertext, err := Encrypt(rand.Reader, SuiteCofactorX963SHA256AESGCM, &priv.PublicKey, plaintext)
	require.NoError(t, err)

	assert.Len(t, ciphertext, 65+len(plaintext)+16)
	assert.Equal(t, byte(0x04), ciphertext[0])
}

func TestEncrypt_HKDFLayout(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ciphertext, err := Encrypt(rand.Reader, SuiteHKDFSHA256AESGCM, &priv.PublicKey, []byte("abc"))
	require.NoError(t, err)
	assert.Len(t, ciphertext, 65+12+16+3)
}

func TestEncrypt_Randomized(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	c1, err := Encrypt(rand.Reader, SuiteCofactorX963SHA256AESGCM, &priv.PublicKey, []byte("same"))
	require.NoError(t, err)
	c2, err := Encrypt(rand.Reader, SuiteCofactorX963SHA256AESGCM, &priv.PublicKey, []byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestEncryptDecrypt_EmptyPlaintext(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	for _, suite := range suites {
		ciphertext, err := Encrypt(rand.Reader, suite, &priv.PublicKey, []byte{})
		require.NoError(t, err)
		decrypted, err := Decrypt(suite, priv, ciphertext)
		require.NoError(t, err)
		assert.Empty(t, decrypted)
		assert.NotNil(t, decrypted)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	for _, suite := range suites {
		ciphertext, err := Encrypt(rand.Reader, suite, &priv.PublicKey, []byte("secret"))
		require.NoError(t, err)
		_, err = Decrypt(suite, other, ciphertext)
		assert.ErrorIs(t, err, ErrAuthentication)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ciphertext, err := Encrypt(rand.Reader, SuiteCofactorX963SHA256AESGCM, &priv.PublicKey, []byte("secret"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xff

	_, err = Decrypt(SuiteCofactorX963SHA256AESGCM, priv, ciphertext)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecrypt_SuiteMismatch(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ciphertext, err := Encrypt(rand.Reader, SuiteHKDFSHA256AESGCM, &priv.PublicKey, []byte("secret"))
	require.NoError(t, err)
	_, err = Decrypt(SuiteCofactorX963SHA256AESGCM, priv, ciphertext)
	assert.Error(t, err)
}

func TestDecrypt_TooShort(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = Decrypt(SuiteCofactorX963SHA256AESGCM, priv, make([]byte, 40))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestUnsupportedSuite(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = Encrypt(rand.Reader, Suite(99), &priv.PublicKey, []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedSuite)
	_, err = Decrypt(Suite(99), priv, make([]byte, 200))
	assert.ErrorIs(t, err, ErrUnsupportedSuite)
}

func TestEncrypt_NilArguments(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = Encrypt(nil, SuiteHKDFSHA256AESGCM, &priv.PublicKey, []byte("x"))
	assert.Error(t, err)
	_, err = Encrypt(rand.Reader, SuiteHKDFSHA256AESGCM, nil, []byte("x"))
	assert.Error(t, err)
	_, err = Encrypt(rand.Reader, SuiteHKDFSHA256AESGCM, &priv.PublicKey, nil)
	assert.Error(t, err)
	_, err = Decrypt(SuiteHKDFSHA256AESGCM, nil, []byte("x"))
	assert.Error(t, err)
}
