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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/crypto/ecies"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// CryptoTokenKit style codes reported for cipher failures.
const (
	tokenErrorCorruptedData = -3
	tokenErrorBadParameter  = -8
)

func suiteFor(alg securestore.Algorithm) (ecies.Suite, error) {
	switch alg {
	case securestore.AlgorithmECIESCofactorX963SHA256AESGCM:
		return ecies.SuiteCofactorX963SHA256AESGCM, nil
	case securestore.AlgorithmECIESHKDFSHA256AESGCM:
		return ecies.SuiteHKDFSHA256AESGCM, nil
	default:
		return 0, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusUnimplemented),
			fmt.Errorf("algorithm %s not supported", alg))
	}
}

// Encrypt seals plaintext to a public key. Any public handle works, not only
// those owned by this store.
func (s *Store) Encrypt(pub securestore.KeyHandle, alg securestore.Algorithm, plaintext []byte) ([]byte, error) {
	if pub == nil || pub.Public() == nil {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusParam),
			errors.New("missing public key"))
	}
	if pub.KeyClass() != securestore.KeyClassPublic {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusParam),
			fmt.Errorf("encryption requires a public key, got %s", pub.KeyClass()))
	}
	suite, err := suiteFor(alg)
	if err != nil {
		return nil, err
	}

	ciphertext, err := ecies.Encrypt(s.random, suite, pub.Public(), plaintext)
	if err != nil {
		return nil, securestore.NewPlatformError(securestore.DomainCryptoToolkit, tokenErrorBadParameter, err)
	}
	return ciphertext, nil
}

// Decrypt opens ciphertext with a private key owned by this store. Keys with
// an access control policy are authorized against the context the handle was
// resolved with.
func (s *Store) Decrypt(prv securestore.KeyHandle, alg securestore.Algorithm, ciphertext []byte) ([]byte, error) {
	k, ok := prv.(*keyHandle)
	if !ok || k == nil || k.owner != s {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusInvalidRecord),
			errors.New("key handle is not owned by this store"))
	}
	if k.class != securestore.KeyClassPrivate {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusParam),
			fmt.Errorf("decryption requires a private key, got %s", k.class))
	}
	suite, err := suiteFor(alg)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(k); err != nil {
		return nil, err
	}

	priv, err := s.privateKey(k)
	if err != nil {
		return nil, securestore.NewPlatformError(securestore.DomainCryptoToolkit, tokenErrorCorruptedData, err)
	}
	plaintext, err := ecies.Decrypt(suite, priv, ciphertext)
	if err != nil {
		return nil, securestore.NewPlatformError(securestore.DomainCryptoToolkit, tokenErrorCorruptedData, err)
	}
	return plaintext, nil
}

// authorize evaluates the key's policy, counting failures toward lockout.
func (s *Store) authorize(k *keyHandle) error {
	if k.policy == nil {
		return nil
	}

	id := k.id()
	if s.limiter.Locked(id) {
		s.logger.Warnf("software store: key %s is locked out", k.shortID())
		return &auth.Error{Code: auth.ErrorBiometryLockout, Message: "too many failed attempts"}
	}

	if k.policy.RequiresCredential() && !k.ctx.IsCredentialSet(auth.CredentialApplicationPassword) &&
		k.ui == securestore.AuthenticationUIFail {
		return securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusInteractionNotAllowed),
			errors.New("authentication required but interaction is not allowed"))
	}

	if err := k.policy.Evaluate(k.ctx); err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) && authErr.Code == auth.ErrorAuthenticationFailed {
			if s.limiter.Fail(id) {
				s.logger.Warnf("software store: key %s locked out after repeated failures", k.shortID())
			}
		}
		s.logger.Warnf("software store: authentication failed for key %s: %v", k.shortID(), err)
		return err
	}

	s.limiter.Reset(id)
	return nil
}
