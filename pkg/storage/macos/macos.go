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

// Package macos provides a storage.Backend that keeps item records in the
// macOS login keychain as generic passwords. Every storage key becomes the
// account attribute of one password item under a fixed service, so the
// software secure element can persist across processes without writing key
// material to plain files.
package macos

import "errors"

const (
	// DefaultService is the keychain service attribute for all items.
	DefaultService = "com.automatethethings.seckeychain"
)

// ErrUnsupported is returned on platforms without a login keychain.
var ErrUnsupported = errors.New("macos storage: not supported on this platform")

// Config configures the backend.
type Config struct {
	// Service is the keychain service attribute. Defaults to DefaultService.
	Service string

	// AccessGroup optionally scopes items to a keychain access group.
	AccessGroup string
}

func (c *Config) service() string {
	if c == nil || c.Service == "" {
		return DefaultService
	}
	return c.Service
}

func (c *Config) accessGroup() string {
	if c == nil {
		return ""
	}
	return c.AccessGroup
}
