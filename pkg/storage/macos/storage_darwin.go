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

//go:build darwin

package macos

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	gokeychain "github.com/keybase/go-keychain"

	"github.com/jeremyhahn/go-seckeychain/pkg/storage"
)

// Supported reports whether the login keychain is available.
const Supported = true

// Storage is a storage.Backend over the login keychain.
type Storage struct {
	mu          sync.RWMutex
	service     string
	accessGroup string
	closed      bool
}

// New creates a keychain backed storage.
func New(config *Config) (*Storage, error) {
	return &Storage{
		service:     config.service(),
		accessGroup: config.accessGroup(),
	}, nil
}

// Get retrieves the value for the given key.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	data, err := gokeychain.GetGenericPassword(s.service, key, "", s.accessGroup)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("macos storage: get %q: %w", key, err)
	}
	if data == nil {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

// Put stores the value for the given key, replacing any existing item.
func (s *Storage) Put(key string, value []byte, opts *storage.Options) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	label := "seckeychain: " + key
	if opts != nil && opts.Label != "" {
		label = "seckeychain: " + opts.Label
	}

	if err := s.delete(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	item := gokeychain.NewGenericPassword(s.service, key, label, value, s.accessGroup)
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)
	if err := gokeychain.AddItem(item); err != nil {
		return fmt.Errorf("macos storage: add %q: %w", key, err)
	}
	return nil
}

// Delete removes the key and its value from storage.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	return s.delete(key)
}

func (s *Storage) delete(key string) error {
	err := gokeychain.DeleteGenericPasswordItem(s.service, key)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("macos storage: delete %q: %w", key, err)
	}
	return nil
}

// List returns all keys with the given prefix in sorted order.
func (s *Storage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	accounts, err := gokeychain.GetGenericPasswordAccounts(s.service)
	if err != nil && !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return nil, fmt.Errorf("macos storage: list: %w", err)
	}

	keys := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if strings.HasPrefix(account, prefix) {
			keys = append(keys, account)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists checks if a key exists in storage.
func (s *Storage) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Close marks the backend closed. Items stay in the keychain.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
