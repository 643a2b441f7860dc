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
// Package storage is the persistence layer beneath the software secure
// element. A Backend is a flat key-value store; the software store lays its
// items out under ItemPath keys and encodes each record itself, so backends
// never interpret values.
package storage

import (
	"io/fs"
)

// Backend stores opaque item records. Implementations must be safe for
// concurrent use. The software store serializes multi-step updates itself,
// so a backend only needs each call to be atomic on its own.
type Backend interface {
	// Get returns the value under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any existing value.
	Put(key string, value []byte, opts *Options) error

	// Delete removes key, or returns ErrNotFound.
	Delete(key string) error

	// List returns every key starting with prefix, sorted. An empty prefix
	// lists everything.
	List(prefix string) ([]string, error)

	Exists(key string) (bool, error)

	// Close releases the backend. Later calls return ErrClosed.
	Close() error
}

// Options are per-item hints. Backends ignore hints they have no use for.
type Options struct {
	// Permissions of the item file on file backends.
	Permissions fs.FileMode

	// Label is a human readable name for backends that display one, such
	// as the macOS login keychain.
	Label string
}

// ItemOptions returns owner-only options labelled for display.
func ItemOptions(label string) *Options {
	return &Options{
		Permissions: 0600,
		Label:       label,
	}
}
