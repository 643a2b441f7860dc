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

//go:build !darwin

package macos

import "github.com/jeremyhahn/go-seckeychain/pkg/storage"

// Supported reports whether the login keychain is available.
const Supported = false

// Storage is unavailable off darwin.
type Storage struct{}

// New always fails with ErrUnsupported.
func New(_ *Config) (*Storage, error) {
	return nil, ErrUnsupported
}

func (s *Storage) Get(string) ([]byte, error) { return nil, ErrUnsupported }
func (s *Storage) Put(string, []byte, *storage.Options) error { return ErrUnsupported }
func (s *Storage) Delete(string) error { return ErrUnsupported }
func (s *Storage) List(string) ([]string, error) { return nil, ErrUnsupported }
func (s *Storage) Exists(string) (bool, error) { return false, ErrUnsupported }
func (s *Storage) Close() error { return nil }
