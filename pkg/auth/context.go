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

// Package auth models the authentication context that gates protected key
// material, and the access control policies derived from it.
//
// A Context is an opaque proof of user presence. Callers may preload it with a
// programmatic credential (an application password) or with the biometric
// domain state that was evaluated for the current user. The only things a
// Context reveals are whether a credential of a given kind is set and the
// access control flags it implies; the credential itself never leaves the
// package, it is only ever compared against a policy via AccessControl.Evaluate.
package auth

import (
	"bytes"
	"sync"
)

// CredentialType identifies the kind of programmatic credential embedded in
// a Context.
type CredentialType int

const (
	// CredentialApplicationPassword is an application supplied passcode.
	CredentialApplicationPassword CredentialType = iota + 1
)

func (t CredentialType) String() string {
	switch t {
	case CredentialApplicationPassword:
		return "application-password"
	default:
		return "unknown"
	}
}

// Context is an opaque authentication context. The zero value is not usable;
// create contexts with NewContext and share them by pointer.
type Context struct {
	mu          sync.RWMutex
	credentials map[CredentialType][]byte
	biometry    []byte
	invalidated bool
}

// NewContext creates an empty authentication context.
func NewContext() *Context {
	return &Context{
		credentials: make(map[CredentialType][]byte),
	}
}

// SetCredential embeds a programmatic credential. A nil credential removes
// the credential of that kind. Returns false if the context was invalidated.
func (c *Context) SetCredential(credential []byte, kind CredentialType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.invalidated {
		return false
	}
	if credential == nil {
		delete(c.credentials, kind)
		return true
	}
	c.credentials[kind] = bytes.Clone(credential)
	return true
}

// IsCredentialSet reports whether a credential of the given kind is embedded.
func (c *Context) IsCredentialSet(kind CredentialType) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.credentials[kind]
	return ok
}

// SetBiometryDomainState records the enrolled biometry set this context was
// evaluated against. Keys created with BiometryCurrentSet are bound to it.
func (c *Context) SetBiometryDomainState(state []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.biometry = bytes.Clone(state)
}

// Invalidate permanently disables the context and wipes its credentials.
func (c *Context) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for kind, cred := range c.credentials {
		clear(cred)
		delete(c.credentials, kind)
	}
	clear(c.biometry)
	c.biometry = nil
	c.invalidated = true
}

// IsValid reports whether the context can still be used.
func (c *Context) IsValid() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.invalidated
}

// AccessControlFlags returns the flags a private key protected by this
// context should carry: credential bound when a programmatic credential is
// set, current biometry set otherwise.
func (c *Context) AccessControlFlags() AccessControlFlags {
	if c.IsCredentialSet(CredentialApplicationPassword) {
		return ApplicationPassword | PrivateKeyUsage
	}
	return BiometryCurrentSet | PrivateKeyUsage
}

// AccessControl creates the access control object for private keys guarded
// by this context, protected while the device is unlocked.
func (c *Context) AccessControl() (*AccessControl, error) {
	return CreateAccessControl(c.AccessControlFlags(), AccessibleWhenUnlockedThisDeviceOnly, c)
}

func (c *Context) credential(kind CredentialType) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cred, ok := c.credentials[kind]
	if !ok {
		return nil, false
	}
	return bytes.Clone(cred), true
}

func (c *Context) biometryState() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return bytes.Clone(c.biometry)
}
