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

package ecdh

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSharedSecret_Agreement(t *testing.T) {
	for _, curve := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
		t.Run(curve.Params().Name, func(t *testing.T) {
			alice, err := ecdsa.GenerateKey(curve, rand.Reader)
			require.NoError(t, err)
			bob, err := ecdsa.GenerateKey(curve, rand.Reader)
			require.NoError(t, err)

			s1, err := DeriveSharedSecret(alice, &bob.PublicKey)
			require.NoError(t, err)
			s2, err := DeriveSharedSecret(bob, &alice.PublicKey)
			require.NoError(t, err)
			assert.Equal(t, s1, s2)
		})
	}
}

func TestDeriveSharedSecret_Errors(t *testing.T) {
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	_, err = DeriveSharedSecret(nil, &p256.PublicKey)
	assert.Error(t, err)
	_, err = DeriveSharedSecret(p256, nil)
	assert.Error(t, err)
	_, err = DeriveSharedSecret(p256, &p384.PublicKey)
	assert.ErrorContains(t, err, "curve mismatch")
}

func TestDeriveKey(t *testing.T) {
	secret := []byte("shared secret")

	k1, err := DeriveKey(secret, nil, []byte("a"), 32)
	require.NoError(t, err)
	k2, err := DeriveKey(secret, nil, []byte("b"), 32)
	require.NoError(t, err)
	assert.Len(t, k1, 32)
	assert.NotEqual(t, k1, k2)

	_, err = DeriveKey(nil, nil, nil, 32)
	assert.Error(t, err)
	_, err = DeriveKey(secret, nil, nil, 0)
	assert.Error(t, err)
}

func TestDeriveKeyX963_FirstBlock(t *testing.T) {
	z := []byte{0x01, 0x02, 0x03}
	info := []byte("info")

	h := sha256.New()
	h.Write(z)
	h.Write([]byte{0, 0, 0, 1})
	h.Write(info)
	want := h.Sum(nil)

	got, err := DeriveKeyX963(z, info, 16)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:16]), hex.EncodeToString(got))
}

func TestDeriveKeyX963_MultipleBlocks(t *testing.T) {
	z := []byte("z")

	long, err := DeriveKeyX963(z, nil, 48)
	require.NoError(t, err)
	short, err := DeriveKeyX963(z, nil, 32)
	require.NoError(t, err)

	assert.Len(t, long, 48)
	assert.Equal(t, short, long[:32])

	_, err = DeriveKeyX963(nil, nil, 16)
	assert.Error(t, err)
	_, err = DeriveKeyX963(z, nil, -1)
	assert.Error(t, err)
}

func TestPublicKey_RoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	data, err := MarshalPublicKey(&key.PublicKey)
	require.NoError(t, err)
	assert.Len(t, data, PublicKeySize(elliptic.P256()))
	assert.Equal(t, byte(0x04), data[0])

	parsed, err := ParsePublicKey(elliptic.P256(), data)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(&key.PublicKey))

	_, err = ParsePublicKey(elliptic.P256(), data[:10])
	assert.Error(t, err)
}
