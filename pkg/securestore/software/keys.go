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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-seckeychain/pkg/encoding"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// SealingKeySize is the size of the key that wraps secure element private
// keys at rest.
const SealingKeySize = chacha20poly1305.KeySize

// keyHandle is the store's KeyHandle. Secure element private keys carry only
// their sealed scalar; it is opened for the duration of a Decrypt call.
type keyHandle struct {
	owner      *Store
	class      securestore.KeyClass
	token      securestore.Token
	public     *ecdsa.PublicKey
	private    *ecdsa.PrivateKey
	sealed     []byte
	policy     *auth.AccessControl
	accessible auth.Accessibility

	// Resolution state: the context and UI mode the handle was obtained with.
	ctx *auth.Context
	ui  securestore.AuthenticationUI
}

func (k *keyHandle) KeyClass() securestore.KeyClass { return k.class }

func (k *keyHandle) Token() securestore.Token { return k.token }

func (k *keyHandle) Public() *ecdsa.PublicKey { return k.public }

func (k *keyHandle) Equal(other securestore.KeyHandle) bool {
	o, ok := other.(*keyHandle)
	if !ok || o == nil {
		return false
	}
	return k.class == o.class && k.public.Equal(o.public)
}

func (k *keyHandle) String() string {
	return fmt.Sprintf("KeyHandle(%s, %s, %s)", k.class, k.token, k.shortID())
}

// id is a stable identifier derived from the public key.
func (k *keyHandle) id() string {
	pub, err := ecdh.MarshalPublicKey(k.public)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])
}

func (k *keyHandle) shortID() string {
	id := k.id()
	if len(id) > 16 {
		return id[:16]
	}
	return id
}

func curveForSize(bits int) (elliptic.Curve, error) {
	switch bits {
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported key size %d", bits)
	}
}

func curveByName(name string) (elliptic.Curve, error) {
	switch name {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported curve %q", name)
	}
}

// seal wraps a private scalar under the sealing key, bound to the public key.
func (s *Store) seal(priv *ecdsa.PrivateKey) ([]byte, error) {
	scalar, err := priv.Bytes()
	if err != nil {
		return nil, err
	}
	defer clear(scalar)

	aad, err := ecdh.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, s.sealer.NonceSize(), s.sealer.NonceSize()+len(scalar)+s.sealer.Overhead())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.sealer.Seal(nonce, nonce, scalar, aad), nil
}

func (s *Store) unseal(k *keyHandle) (*ecdsa.PrivateKey, error) {
	if len(k.sealed) < s.sealer.NonceSize() {
		return nil, fmt.Errorf("sealed key too short")
	}
	aad, err := ecdh.MarshalPublicKey(k.public)
	if err != nil {
		return nil, err
	}
	nonce, ct := k.sealed[:s.sealer.NonceSize()], k.sealed[s.sealer.NonceSize():]
	scalar, err := s.sealer.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key: %w", err)
	}
	defer clear(scalar)
	return ecdsa.ParseRawPrivateKey(k.public.Curve, scalar)
}

// privateKey returns the private material of k, unsealing it if needed.
func (s *Store) privateKey(k *keyHandle) (*ecdsa.PrivateKey, error) {
	if k.private != nil {
		return k.private, nil
	}
	return s.unseal(k)
}

// handleRecord converts a handle into its persisted form.
func (s *Store) handleRecord(k *keyHandle, rec *itemRecord) error {
	pub, err := ecdh.MarshalPublicKey(k.public)
	if err != nil {
		return err
	}
	rec.KeyClass = k.class
	rec.Token = k.token
	rec.Curve = k.public.Curve.Params().Name
	rec.Public = pub
	rec.Private = nil
	rec.Sealed = nil
	rec.Policy = nil

	if k.class == securestore.KeyClassPrivate {
		if k.token == securestore.TokenSecureEnclave {
			rec.Sealed = k.sealed
		} else {
			der, err := encoding.EncodePrivateKey(k.private, nil)
			if err != nil {
				return err
			}
			rec.Private = der
		}
	}
	if k.policy != nil {
		policy, err := k.policy.MarshalBinary()
		if err != nil {
			return err
		}
		rec.Policy = policy
	}
	if rec.Accessible == 0 {
		rec.Accessible = k.accessible
	}
	return nil
}

// recordHandle rebuilds a handle from its persisted form.
func (s *Store) recordHandle(rec *itemRecord, opts *securestore.GetOptions) (*keyHandle, error) {
	curve, err := curveByName(rec.Curve)
	if err != nil {
		return nil, err
	}
	pub, err := ecdh.ParsePublicKey(curve, rec.Public)
	if err != nil {
		return nil, err
	}

	k := &keyHandle{
		owner:      s,
		class:      rec.KeyClass,
		token:      rec.Token,
		public:     pub,
		sealed:     rec.Sealed,
		accessible: rec.Accessible,
	}
	if len(rec.Private) > 0 {
		if k.private, err = encoding.DecodePrivateKey(rec.Private, nil); err != nil {
			return nil, err
		}
	}
	if len(rec.Policy) > 0 {
		k.policy = &auth.AccessControl{}
		if err := k.policy.UnmarshalBinary(rec.Policy); err != nil {
			return nil, err
		}
	}
	if opts != nil {
		k.ctx = opts.Context
		k.ui = opts.AuthenticationUI
	}
	return k, nil
}

// GenerateKeyPair creates an elliptic curve keypair. A permanent secure
// element private key is persisted under its label immediately; every other
// half is returned transient for the caller to save.
func (s *Store) GenerateKeyPair(desc *securestore.KeyPairDescriptor) (securestore.KeyHandle, securestore.KeyHandle, error) {
	if desc == nil || desc.KeyType != securestore.KeyTypeECSECPrimeRandom {
		return nil, nil, securestore.StatusParam
	}
	if err := s.checkEntitlement(desc.Scope); err != nil {
		return nil, nil, err
	}
	curve, err := curveForSize(desc.KeySizeInBits)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", securestore.StatusParam, err)
	}
	if desc.Token == securestore.TokenSecureEnclave {
		if !s.secureElement {
			return nil, nil, securestore.StatusUnimplemented
		}
		if curve != elliptic.P256() {
			return nil, nil, fmt.Errorf("%w: secure element keys are P-256 only", securestore.StatusParam)
		}
	}

	priv, err := ecdsa.GenerateKey(curve, s.random)
	if err != nil {
		return nil, nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusAllocate), err)
	}

	accessible := desc.Private.Accessible
	if desc.Private.AccessControl != nil {
		accessible = desc.Private.AccessControl.Protection()
	}
	prv := &keyHandle{
		owner:      s,
		class:      securestore.KeyClassPrivate,
		token:      desc.Token,
		public:     &priv.PublicKey,
		policy:     desc.Private.AccessControl,
		accessible: accessible,
		ctx:        desc.Private.Context,
		ui:         desc.Private.AuthenticationUI,
	}
	if desc.Token == securestore.TokenSecureEnclave {
		if prv.sealed, err = s.seal(priv); err != nil {
			return nil, nil, securestore.NewPlatformError(securestore.DomainCryptoToolkit, -1, err)
		}
	} else {
		prv.private = priv
	}

	pub := &keyHandle{
		owner:      s,
		class:      securestore.KeyClassPublic,
		token:      securestore.TokenNone,
		public:     &priv.PublicKey,
		accessible: desc.Public.Accessible,
	}

	if desc.Token == securestore.TokenSecureEnclave && desc.Private.Permanent {
		item := &securestore.Item{
			Class:          securestore.ClassKey,
			Identity:       securestore.Identity{Label: desc.Private.Label},
			Scope:          desc.Scope,
			Value:          securestore.Value{Key: prv},
			Accessible:     accessible,
			Synchronizable: desc.Synchronizable,
		}
		if err := s.Put(item); err != nil {
			return nil, nil, err
		}
	}

	s.logger.Debugf("software store: generated %s keypair %s in %q", desc.Token, prv.shortID(), desc.Scope)
	return prv, pub, nil
}

// ImportPrivateKey wraps existing key material as transient software handles
// owned by this store.
func (s *Store) ImportPrivateKey(priv *ecdsa.PrivateKey) (prv securestore.KeyHandle, pub securestore.KeyHandle, err error) {
	if priv == nil {
		return nil, nil, securestore.StatusParam
	}
	if _, err := curveByName(priv.Curve.Params().Name); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", securestore.StatusParam, err)
	}
	prv = &keyHandle{
		owner:   s,
		class:   securestore.KeyClassPrivate,
		token:   securestore.TokenNone,
		public:  &priv.PublicKey,
		private: priv,
	}
	pub = &keyHandle{
		owner:  s,
		class:  securestore.KeyClassPublic,
		token:  securestore.TokenNone,
		public: &priv.PublicKey,
	}
	return prv, pub, nil
}

// ImportPrivateKeyPEM decodes a PKCS#8 PEM private key and imports it.
func (s *Store) ImportPrivateKeyPEM(data, password []byte) (securestore.KeyHandle, securestore.KeyHandle, error) {
	priv, err := encoding.DecodePrivateKeyPEM(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", securestore.StatusDecode, err)
	}
	return s.ImportPrivateKey(priv)
}
