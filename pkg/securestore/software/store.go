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

// Package software implements the secure item store and asymmetric cipher
// contracts in software, on top of any storage.Backend.
//
// Items are CBOR records stored under items/<scope>/<class>/<label>/<account>.
// A scope the store is not entitled to is refused on every call. Private keys
// generated for the secure element are sealed with XChaCha20-Poly1305 under a
// store wide sealing key and only opened inside Decrypt, after the key's
// access control policy has been evaluated against the authentication context
// the handle was resolved with. Repeated authentication failures against the
// same key lock it out for a while.
package software

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeremyhahn/go-seckeychain/pkg/logging"
	"github.com/jeremyhahn/go-seckeychain/pkg/ratelimit"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
	"github.com/jeremyhahn/go-seckeychain/pkg/storage"
)

// Config configures a software store.
type Config struct {
	// Backend persists items. Required.
	Backend storage.Backend

	// Entitlements lists the access groups the store may touch. Empty means
	// every group is allowed.
	Entitlements []string

	// DisableSecureElement makes secure element key generation fail as it
	// does on hardware without one.
	DisableSecureElement bool

	// SealingKey wraps secure element private keys at rest. When empty a
	// random key is used, so sealed keys do not survive the process.
	SealingKey []byte

	// AuthFailuresPerMinute enables lockout after repeated authentication
	// failures against a key. Zero disables lockout.
	AuthFailuresPerMinute int

	// AuthFailureBurst is the number of consecutive failures tolerated.
	// Defaults to AuthFailuresPerMinute.
	AuthFailureBurst int

	// Random is the entropy source. Defaults to crypto/rand.Reader.
	Random io.Reader

	Logger *logging.Logger
}

// Store is a software secure element. It implements securestore.Store and
// securestore.Cipher.
type Store struct {
	mu            sync.RWMutex
	backend       storage.Backend
	entitlements  map[string]struct{}
	secureElement bool
	sealer        cipher.AEAD
	random        io.Reader
	limiter       *ratelimit.Limiter
	logger        *logging.Logger
}

var (
	_ securestore.Store  = (*Store)(nil)
	_ securestore.Cipher = (*Store)(nil)
)

// New creates a software store over config.Backend.
func New(config *Config) (*Store, error) {
	if config == nil || config.Backend == nil {
		return nil, fmt.Errorf("software store: backend is required")
	}

	random := config.Random
	if random == nil {
		random = rand.Reader
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	sealingKey := config.SealingKey
	if len(sealingKey) == 0 {
		sealingKey = make([]byte, SealingKeySize)
		if _, err := io.ReadFull(random, sealingKey); err != nil {
			return nil, fmt.Errorf("software store: failed to generate sealing key: %w", err)
		}
		logger.Debugf("software store: using an ephemeral sealing key")
	}
	sealer, err := chacha20poly1305.NewX(sealingKey)
	if err != nil {
		return nil, fmt.Errorf("software store: invalid sealing key: %w", err)
	}

	var entitlements map[string]struct{}
	if len(config.Entitlements) > 0 {
		entitlements = make(map[string]struct{}, len(config.Entitlements))
		for _, group := range config.Entitlements {
			entitlements[group] = struct{}{}
		}
	}

	return &Store{
		backend:       config.Backend,
		entitlements:  entitlements,
		secureElement: !config.DisableSecureElement,
		sealer:        sealer,
		random:        random,
		limiter: ratelimit.New(&ratelimit.Config{
			Enabled:           config.AuthFailuresPerMinute > 0,
			FailuresPerMinute: config.AuthFailuresPerMinute,
			Burst:             config.AuthFailureBurst,
		}),
		logger: logger,
	}, nil
}

// NewMemory creates a store over a fresh in-memory backend, entitled to the
// given access groups.
func NewMemory(entitlements ...string) *Store {
	s, err := New(&Config{
		Backend:      storage.NewMemory(),
		Entitlements: entitlements,
		Logger:       logging.Discard(),
	})
	if err != nil {
		panic("failed to create memory store: " + err.Error())
	}
	return s
}

// HasSecureElement reports whether secure element keys can be generated.
func (s *Store) HasSecureElement() bool {
	return s.secureElement
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) checkEntitlement(scope string) error {
	if s.entitlements == nil {
		return nil
	}
	if _, ok := s.entitlements[scope]; !ok {
		return securestore.StatusMissingEntitlement
	}
	return nil
}

func checkClass(class securestore.Class) error {
	if class != securestore.ClassGenericPassword && class != securestore.ClassKey {
		return securestore.StatusParam
	}
	return nil
}

func backendError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return securestore.StatusItemNotFound
	}
	return securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusNotAvailable), err)
}

// match is one stored item matching a lookup.
type match struct {
	key string
	rec *itemRecord
}

// find returns the items of class in scope matching id, in key order.
// Callers hold s.mu.
func (s *Store) find(class securestore.Class, id securestore.Identity, scope string) ([]match, error) {
	keys, err := storage.ListItems(s.backend, scope, class.String())
	if err != nil {
		return nil, backendError(err)
	}

	var matches []match
	for _, key := range keys {
		_, _, label, account, err := storage.ParseItemPath(key)
		if err != nil {
			s.logger.Warnf("software store: skipping foreign key %q: %v", key, err)
			continue
		}
		if !id.Matches(securestore.Identity{Label: label, Account: account}) {
			continue
		}
		data, err := s.backend.Get(key)
		if err != nil {
			return nil, backendError(err)
		}
		rec, err := decodeItem(data)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match{key: key, rec: rec})
	}
	return matches, nil
}

// Put inserts a new item.
func (s *Store) Put(item *securestore.Item) error {
	if item == nil {
		return securestore.StatusParam
	}
	if err := checkClass(item.Class); err != nil {
		return err
	}
	if err := s.checkEntitlement(item.Scope); err != nil {
		return err
	}

	account := item.Account
	if item.Class == securestore.ClassKey {
		account = ""
	}
	rec := &itemRecord{
		Class:          item.Class,
		Label:          item.Label,
		Account:        account,
		Accessible:     item.Accessible,
		Synchronizable: item.Synchronizable,
	}
	if err := s.fill(rec, item.Class, item.Value); err != nil {
		return err
	}
	data, err := encodeItem(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := storage.ItemPath(item.Scope, item.Class.String(), item.Label, account)
	exists, err := s.backend.Exists(key)
	if err != nil {
		return backendError(err)
	}
	if exists {
		return securestore.StatusDuplicateItem
	}
	if err := s.backend.Put(key, data, storage.ItemOptions(item.Label)); err != nil {
		return backendError(err)
	}
	return nil
}

// fill sets the payload fields of rec from value.
func (s *Store) fill(rec *itemRecord, class securestore.Class, value securestore.Value) error {
	if class == securestore.ClassGenericPassword {
		if value.Key != nil {
			return securestore.StatusParam
		}
		rec.Data = value.Data
		return nil
	}

	if value.Key == nil {
		return securestore.StatusParam
	}
	k, ok := value.Key.(*keyHandle)
	if !ok || k.owner != s {
		return securestore.StatusInvalidRecord
	}
	return s.handleRecord(k, rec)
}

// Overwrite replaces the payload of every item matching id.
func (s *Store) Overwrite(class securestore.Class, id securestore.Identity, scope string, value securestore.Value) error {
	if err := checkClass(class); err != nil {
		return err
	}
	if err := s.checkEntitlement(scope); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.find(class, id, scope)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return securestore.StatusItemNotFound
	}
	for _, m := range matches {
		if err := s.fill(m.rec, class, value); err != nil {
			return err
		}
		data, err := encodeItem(m.rec)
		if err != nil {
			return err
		}
		if err := s.backend.Put(m.key, data, storage.ItemOptions(m.rec.Label)); err != nil {
			return backendError(err)
		}
	}
	return nil
}

// Delete removes every item matching id.
func (s *Store) Delete(class securestore.Class, id securestore.Identity, scope string) error {
	if err := checkClass(class); err != nil {
		return err
	}
	if err := s.checkEntitlement(scope); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.find(class, id, scope)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return securestore.StatusItemNotFound
	}
	for _, m := range matches {
		if err := s.backend.Delete(m.key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return backendError(err)
		}
	}
	return nil
}

// DeleteAll removes every item of class in scope.
func (s *Store) DeleteAll(class securestore.Class, scope string) error {
	return s.Delete(class, securestore.Identity{}, scope)
}

// Get returns the first item matching id.
func (s *Store) Get(class securestore.Class, id securestore.Identity, scope string, opts *securestore.GetOptions) (*securestore.Result, error) {
	if err := checkClass(class); err != nil {
		return nil, err
	}
	if err := s.checkEntitlement(scope); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.find(class, id, scope)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, securestore.StatusItemNotFound
	}

	rec := matches[0].rec
	result := &securestore.Result{Attributes: rec.attributes(scope)}
	if opts != nil && opts.Return == securestore.ReturnAttributes {
		return result, nil
	}

	if class == securestore.ClassGenericPassword {
		result.Data = rec.Data
		if result.Data == nil {
			result.Data = []byte{}
		}
		return result, nil
	}

	k, err := s.recordHandle(rec, opts)
	if err != nil {
		return nil, securestore.NewPlatformError(securestore.DomainOSStatus, int(securestore.StatusDecode), err)
	}
	result.Key = k
	return result, nil
}

// Enumerate lists the attributes of every item of class in scope. An empty
// scope yields an empty list.
func (s *Store) Enumerate(class securestore.Class, scope string) ([]securestore.Attributes, error) {
	if err := checkClass(class); err != nil {
		return nil, err
	}
	if err := s.checkEntitlement(scope); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := s.find(class, securestore.Identity{}, scope)
	if err != nil {
		return nil, err
	}
	attrs := make([]securestore.Attributes, 0, len(matches))
	for _, m := range matches {
		attrs = append(attrs, m.rec.attributes(scope))
	}
	return attrs, nil
}
