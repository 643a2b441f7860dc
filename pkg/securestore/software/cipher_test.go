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

package software

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/logging"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
	"github.com/jeremyhahn/go-seckeychain/pkg/storage"
)

const alg = securestore.AlgorithmECIESCofactorX963SHA256AESGCM

func descriptor(token securestore.Token, ctx *auth.Context, ac *auth.AccessControl) *securestore.KeyPairDescriptor {
	return &securestore.KeyPairDescriptor{
		KeyType:       securestore.KeyTypeECSECPrimeRandom,
		KeySizeInBits: 256,
		Token:         token,
		Scope:         testGroup,
		Private: securestore.PrivateKeyAttributes{
			Label:         "prv",
			Permanent:     true,
			Context:       ctx,
			AccessControl: ac,
			Accessible:    auth.AccessibleWhenUnlockedThisDeviceOnly,
		},
		Public: securestore.PublicKeyAttributes{
			Label:      "pub",
			Accessible: auth.AccessibleAlwaysThisDeviceOnly,
		},
	}
}

func TestGenerateKeyPair_SecureElementPersistsPrivate(t *testing.T) {
	s := NewMemory(testGroup)
	ctx := passwordContext(t, "000000")
	ac, err := ctx.AccessControl()
	require.NoError(t, err)

	prv, pub, err := s.GenerateKeyPair(descriptor(securestore.TokenSecureEnclave, ctx, ac))
	require.NoError(t, err)
	assert.Equal(t, securestore.KeyClassPrivate, prv.KeyClass())
	assert.Equal(t, securestore.TokenSecureEnclave, prv.Token())
	assert.Equal(t, securestore.KeyClassPublic, pub.KeyClass())
	assert.True(t, prv.Public().Equal(pub.Public()))
	assert.False(t, prv.Equal(pub))

	res, err := s.Get(securestore.ClassKey, securestore.Identity{Label: "prv"}, testGroup, nil)
	require.NoError(t, err)
	assert.True(t, prv.Equal(res.Key))
	assert.Equal(t, auth.AccessibleWhenUnlockedThisDeviceOnly, res.Attributes.Accessible)

	_, err = s.Get(securestore.ClassKey, securestore.Identity{Label: "pub"}, testGroup, nil)
	assert.ErrorIs(t, err, securestore.StatusItemNotFound)

	_, _, err = s.GenerateKeyPair(descriptor(securestore.TokenSecureEnclave, ctx, ac))
	assert.ErrorIs(t, err, securestore.StatusDuplicateItem)
}

func TestGenerateKeyPair_SoftwareIsTransient(t *testing.T) {
	s := NewMemory(testGroup)

	_, _, err := s.GenerateKeyPair(descriptor(securestore.TokenNone, nil, nil))
	require.NoError(t, err)

	attrs, err := s.Enumerate(securestore.ClassKey, testGroup)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestGenerateKeyPair_NoSecureElement(t *testing.T) {
	s, err := New(&Config{Backend: storage.NewMemory(), DisableSecureElement: true, Logger: logging.Discard()})
	require.NoError(t, err)
	assert.False(t, s.HasSecureElement())

	_, _, err = s.GenerateKeyPair(descriptor(securestore.TokenSecureEnclave, nil, nil))
	assert.ErrorIs(t, err, securestore.StatusUnimplemented)
}

func TestGenerateKeyPair_InvalidDescriptor(t *testing.T) {
	s := NewMemory()

	_, _, err := s.GenerateKeyPair(nil)
	assert.ErrorIs(t, err, securestore.StatusParam)

	desc := descriptor(securestore.TokenNone, nil, nil)
	desc.KeySizeInBits = 1024
	_, _, err = s.GenerateKeyPair(desc)
	assert.ErrorIs(t, err, securestore.StatusParam)

	desc = descriptor(securestore.TokenSecureEnclave, nil, nil)
	desc.KeySizeInBits = 384
	_, _, err = s.GenerateKeyPair(desc)
	assert.ErrorIs(t, err, securestore.StatusParam)
}

func TestCipher_RoundTrip(t *testing.T) {
	s := NewMemory(testGroup)

	for _, token := range []securestore.Token{securestore.TokenNone, securestore.TokenSecureEnclave} {
		desc := descriptor(token, nil, nil)
		desc.Private.Permanent = false
		prv, pub, err := s.GenerateKeyPair(desc)
		require.NoError(t, err)

		for _, a := range []securestore.Algorithm{alg, securestore.AlgorithmECIESHKDFSHA256AESGCM} {
			ciphertext, err := s.Encrypt(pub, a, []byte("hello"))
			require.NoError(t, err)
			plaintext, err := s.Decrypt(prv, a, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), plaintext)
		}
	}
}

func TestCipher_WrongKeyClass(t *testing.T) {
	s := NewMemory(testGroup)
	prv, pub, err := s.GenerateKeyPair(descriptor(securestore.TokenNone, nil, nil))
	require.NoError(t, err)

	_, err = s.Encrypt(prv, alg, []byte("x"))
	var perr *securestore.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int(securestore.StatusParam), perr.Code)

	_, err = s.Decrypt(pub, alg, []byte("x"))
	require.ErrorAs(t, err, &perr)

	_, err = s.Encrypt(nil, alg, []byte("x"))
	assert.Error(t, err)

	_, err = s.Encrypt(pub, securestore.Algorithm(42), []byte("x"))
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int(securestore.StatusUnimplemented), perr.Code)
}

func TestCipher_ForeignHandle(t *testing.T) {
	s := NewMemory(testGroup)
	other := NewMemory(testGroup)
	prv, pub, err := other.GenerateKeyPair(descriptor(securestore.TokenNone, nil, nil))
	require.NoError(t, err)

	ciphertext, err := s.Encrypt(pub, alg, []byte("x"))
	require.NoError(t, err)

	_, err = s.Decrypt(prv, alg, ciphertext)
	status, ok := securestore.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, securestore.StatusInvalidRecord, status)
}

func TestCipher_CorruptedCiphertext(t *testing.T) {
	s := NewMemory(testGroup)
	prv, pub, err := s.GenerateKeyPair(descriptor(securestore.TokenNone, nil, nil))
	require.NoError(t, err)

	ciphertext, err := s.Encrypt(pub, alg, []byte("hello"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 1

	_, err = s.Decrypt(prv, alg, ciphertext)
	var perr *securestore.PlatformError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, securestore.DomainCryptoToolkit, perr.Domain)
}

func TestCipher_PolicyEnforcedOnLoadedHandle(t *testing.T) {
	s := NewMemory(testGroup)
	ctx := passwordContext(t, "000000")
	ac, err := ctx.AccessControl()
	require.NoError(t, err)

	_, pub, err := s.GenerateKeyPair(descriptor(securestore.TokenSecureEnclave, ctx, ac))
	require.NoError(t, err)
	ciphertext, err := s.Encrypt(pub, alg, []byte("secret"))
	require.NoError(t, err)

	load := func(ctx *auth.Context, ui securestore.AuthenticationUI) securestore.KeyHandle {
		res, err := s.Get(securestore.ClassKey, securestore.Identity{Label: "prv"}, testGroup,
			&securestore.GetOptions{Context: ctx, AuthenticationUI: ui})
		require.NoError(t, err)
		return res.Key
	}

	plaintext, err := s.Decrypt(load(passwordContext(t, "000000"), securestore.AuthenticationUIDefault), alg, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), plaintext)

	_, err = s.Decrypt(load(passwordContext(t, "111111"), securestore.AuthenticationUIDefault), alg, ciphertext)
	assert.ErrorIs(t, err, &auth.Error{Code: auth.ErrorAuthenticationFailed})

	_, err = s.Decrypt(load(nil, securestore.AuthenticationUIDefault), alg, ciphertext)
	assert.ErrorIs(t, err, &auth.Error{Code: auth.ErrorNotInteractive})

	_, err = s.Decrypt(load(auth.NewContext(), securestore.AuthenticationUIFail), alg, ciphertext)
	status, ok := securestore.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, securestore.StatusInteractionNotAllowed, status)
}

func TestCipher_Lockout(t *testing.T) {
	s, err := New(&Config{
		Backend:               storage.NewMemory(),
		AuthFailuresPerMinute: 1,
		AuthFailureBurst:      2,
		Logger:                logging.Discard(),
	})
	require.NoError(t, err)

	ctx := passwordContext(t, "000000")
	ac, err := ctx.AccessControl()
	require.NoError(t, err)
	prv, pub, err := s.GenerateKeyPair(descriptor(securestore.TokenSecureEnclave, ctx, ac))
	require.NoError(t, err)
	ciphertext, err := s.Encrypt(pub, alg, []byte("secret"))
	require.NoError(t, err)

	wrong := prv.(*keyHandle)
	wrong.ctx = passwordContext(t, "999999")
	for i := 0; i < 2; i++ {
		_, err = s.Decrypt(wrong, alg, ciphertext)
		assert.ErrorIs(t, err, &auth.Error{Code: auth.ErrorAuthenticationFailed})
	}

	wrong.ctx = ctx
	_, err = s.Decrypt(wrong, alg, ciphertext)
	assert.ErrorIs(t, err, &auth.Error{Code: auth.ErrorBiometryLockout})
}

func TestImportPrivateKeyPEM_Invalid(t *testing.T) {
	s := NewMemory()
	_, _, err := s.ImportPrivateKeyPEM([]byte("nope"), nil)
	assert.ErrorIs(t, err, securestore.StatusDecode)

	_, _, err = s.ImportPrivateKey(nil)
	assert.ErrorIs(t, err, securestore.StatusParam)
}
