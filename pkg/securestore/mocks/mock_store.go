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

// Package mocks provides a fault-injecting securestore.Store and
// securestore.Cipher for tests. Unconfigured calls are delegated to a real
// implementation, so tests only override the step they want to fail.
package mocks

import (
	"sync"

	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// MockStore wraps a Store and Cipher with configurable behavior and call
// tracking. Func fields run instead of the delegate when set; they may call
// the delegate themselves to pass through.
type MockStore struct {
	mu sync.Mutex

	Store  securestore.Store
	Cipher securestore.Cipher

	// Configurable behavior
	PutFunc             func(*securestore.Item) error
	OverwriteFunc       func(securestore.Class, securestore.Identity, string, securestore.Value) error
	DeleteFunc          func(securestore.Class, securestore.Identity, string) error
	GetFunc             func(securestore.Class, securestore.Identity, string, *securestore.GetOptions) (*securestore.Result, error)
	DeleteAllFunc       func(securestore.Class, string) error
	EnumerateFunc       func(securestore.Class, string) ([]securestore.Attributes, error)
	GenerateKeyPairFunc func(*securestore.KeyPairDescriptor) (securestore.KeyHandle, securestore.KeyHandle, error)
	EncryptFunc         func(securestore.KeyHandle, securestore.Algorithm, []byte) ([]byte, error)
	DecryptFunc         func(securestore.KeyHandle, securestore.Algorithm, []byte) ([]byte, error)

	// Call tracking, by item label
	PutCalls             []string
	OverwriteCalls       []string
	DeleteCalls          []string
	GetCalls             []string
	DeleteAllCalls       int
	EnumerateCalls       int
	GenerateKeyPairCalls []string
	EncryptCalls         int
	DecryptCalls         int
}

var (
	_ securestore.Store  = (*MockStore)(nil)
	_ securestore.Cipher = (*MockStore)(nil)
)

// NewMockStore creates a MockStore delegating to store and cipher.
func NewMockStore(store securestore.Store, cipher securestore.Cipher) *MockStore {
	return &MockStore{
		Store:  store,
		Cipher: cipher,
	}
}

// FailNth returns a function that reports true on the nth call and every
// call after it. Useful to fail the second save of a sequence.
func FailNth(n int) func() bool {
	var mu sync.Mutex
	calls := 0
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return calls >= n
	}
}

func (m *MockStore) track(list *[]string, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*list = append(*list, label)
}

func (m *MockStore) count(n *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*n++
}

// Put inserts an item.
func (m *MockStore) Put(item *securestore.Item) error {
	label := ""
	if item != nil {
		label = item.Label
	}
	m.track(&m.PutCalls, label)
	if m.PutFunc != nil {
		return m.PutFunc(item)
	}
	return m.Store.Put(item)
}

// Overwrite replaces matching payloads.
func (m *MockStore) Overwrite(class securestore.Class, id securestore.Identity, scope string, value securestore.Value) error {
	m.track(&m.OverwriteCalls, id.Label)
	if m.OverwriteFunc != nil {
		return m.OverwriteFunc(class, id, scope, value)
	}
	return m.Store.Overwrite(class, id, scope, value)
}

// Delete removes matching items.
func (m *MockStore) Delete(class securestore.Class, id securestore.Identity, scope string) error {
	m.track(&m.DeleteCalls, id.Label)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(class, id, scope)
	}
	return m.Store.Delete(class, id, scope)
}

// Get returns the first matching item.
func (m *MockStore) Get(class securestore.Class, id securestore.Identity, scope string, opts *securestore.GetOptions) (*securestore.Result, error) {
	m.track(&m.GetCalls, id.Label)
	if m.GetFunc != nil {
		return m.GetFunc(class, id, scope, opts)
	}
	return m.Store.Get(class, id, scope, opts)
}

// DeleteAll removes every item of class in scope.
func (m *MockStore) DeleteAll(class securestore.Class, scope string) error {
	m.count(&m.DeleteAllCalls)
	if m.DeleteAllFunc != nil {
		return m.DeleteAllFunc(class, scope)
	}
	return m.Store.DeleteAll(class, scope)
}

// Enumerate lists item attributes.
func (m *MockStore) Enumerate(class securestore.Class, scope string) ([]securestore.Attributes, error) {
	m.count(&m.EnumerateCalls)
	if m.EnumerateFunc != nil {
		return m.EnumerateFunc(class, scope)
	}
	return m.Store.Enumerate(class, scope)
}

// GenerateKeyPair creates a keypair.
func (m *MockStore) GenerateKeyPair(desc *securestore.KeyPairDescriptor) (securestore.KeyHandle, securestore.KeyHandle, error) {
	label := ""
	if desc != nil {
		label = desc.Private.Label
	}
	m.track(&m.GenerateKeyPairCalls, label)
	if m.GenerateKeyPairFunc != nil {
		return m.GenerateKeyPairFunc(desc)
	}
	return m.Store.GenerateKeyPair(desc)
}

// Encrypt seals plaintext to pub.
func (m *MockStore) Encrypt(pub securestore.KeyHandle, alg securestore.Algorithm, plaintext []byte) ([]byte, error) {
	m.count(&m.EncryptCalls)
	if m.EncryptFunc != nil {
		return m.EncryptFunc(pub, alg, plaintext)
	}
	return m.Cipher.Encrypt(pub, alg, plaintext)
}

// Decrypt opens ciphertext with prv.
func (m *MockStore) Decrypt(prv securestore.KeyHandle, alg securestore.Algorithm, ciphertext []byte) ([]byte, error) {
	m.count(&m.DecryptCalls)
	if m.DecryptFunc != nil {
		return m.DecryptFunc(prv, alg, ciphertext)
	}
	return m.Cipher.Decrypt(prv, alg, ciphertext)
}

// Reset clears all configured behavior and call tracking.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutFunc = nil
	m.OverwriteFunc = nil
	m.DeleteFunc = nil
	m.GetFunc = nil
	m.DeleteAllFunc = nil
	m.EnumerateFunc = nil
	m.GenerateKeyPairFunc = nil
	m.EncryptFunc = nil
	m.DecryptFunc = nil

	m.PutCalls = nil
	m.OverwriteCalls = nil
	m.DeleteCalls = nil
	m.GetCalls = nil
	m.DeleteAllCalls = 0
	m.EnumerateCalls = 0
	m.GenerateKeyPairCalls = nil
	m.EncryptCalls = 0
	m.DecryptCalls = 0
}
