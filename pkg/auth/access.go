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

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/argon2"
)

// AccessControlFlags select the conditions under which protected key
// material may be used.
type AccessControlFlags uint32

const (
	UserPresence        AccessControlFlags = 1 << 0
	BiometryAny         AccessControlFlags = 1 << 1
	BiometryCurrentSet  AccessControlFlags = 1 << 3
	DevicePasscode      AccessControlFlags = 1 << 4
	Or                  AccessControlFlags = 1 << 14
	And                 AccessControlFlags = 1 << 15
	PrivateKeyUsage     AccessControlFlags = 1 << 30
	ApplicationPassword AccessControlFlags = 1 << 31
)

var flagNames = []struct {
	flag AccessControlFlags
	name string
}{
	{UserPresence, "userPresence"},
	{BiometryAny, "biometryAny"},
	{BiometryCurrentSet, "biometryCurrentSet"},
	{DevicePasscode, "devicePasscode"},
	{Or, "or"},
	{And, "and"},
	{PrivateKeyUsage, "privateKeyUsage"},
	{ApplicationPassword, "applicationPassword"},
}

// Contains reports whether all bits of other are set in f.
func (f AccessControlFlags) Contains(other AccessControlFlags) bool {
	return f&other == other
}

func (f AccessControlFlags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Contains(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Accessibility is the data protection class of a stored item.
type Accessibility int

const (
	AccessibleDefault Accessibility = iota
	AccessibleWhenUnlocked
	AccessibleWhenUnlockedThisDeviceOnly
	AccessibleAfterFirstUnlockThisDeviceOnly
	AccessibleAlwaysThisDeviceOnly
)

func (a Accessibility) String() string {
	switch a {
	case AccessibleWhenUnlocked:
		return "whenUnlocked"
	case AccessibleWhenUnlockedThisDeviceOnly:
		return "whenUnlockedThisDeviceOnly"
	case AccessibleAfterFirstUnlockThisDeviceOnly:
		return "afterFirstUnlockThisDeviceOnly"
	case AccessibleAlwaysThisDeviceOnly:
		return "alwaysThisDeviceOnly"
	default:
		return "default"
	}
}

// argon2id parameters for credential verifiers
const (
	argonTime    = 1
	argonMemory  = 16 * 1024
	argonThreads = 2
	argonKeyLen  = 32
	saltSize     = 16
)

// AccessControl is a policy object attached to protected key material. It
// records the flags, the protection class and whatever the creating context
// bound the policy to: a verifier of the application password, or a digest
// of the biometry domain state.
type AccessControl struct {
	flags      AccessControlFlags
	protection Accessibility
	salt       []byte
	verifier   []byte
	biometry   []byte
}

// CreateAccessControl builds an access control object. A flag set made only
// of PrivateKeyUsage is rejected. Credential and biometry flags are bound to
// the supplied context at creation time.
func CreateAccessControl(flags AccessControlFlags, protection Accessibility, ctx *Context) (*AccessControl, error) {
	if flags == PrivateKeyUsage {
		return nil, fmt.Errorf("%w: couldn't create access control with flags %s", ErrInvalidAccessControl, flags)
	}
	if ctx != nil && !ctx.IsValid() {
		return nil, newError(ErrorInvalidContext, "context has been invalidated")
	}

	ac := &AccessControl{
		flags:      flags,
		protection: protection,
	}

	if flags.Contains(ApplicationPassword) {
		if ctx == nil {
			return nil, fmt.Errorf("%w: application password", ErrCredentialRequired)
		}
		cred, ok := ctx.credential(CredentialApplicationPassword)
		if !ok {
			return nil, fmt.Errorf("%w: application password", ErrCredentialRequired)
		}
		ac.salt = make([]byte, saltSize)
		if _, err := rand.Read(ac.salt); err != nil {
			return nil, fmt.Errorf("auth: failed to generate salt: %w", err)
		}
		ac.verifier = deriveVerifier(cred, ac.salt)
		clear(cred)
	}

	if flags.Contains(BiometryCurrentSet) {
		if ctx == nil {
			return nil, newError(ErrorBiometryNotEnrolled, "no context to bind biometry to")
		}
		state := ctx.biometryState()
		if len(state) == 0 {
			return nil, newError(ErrorBiometryNotEnrolled, "no biometry domain state")
		}
		digest := sha256.Sum256(state)
		ac.biometry = digest[:]
	}

	return ac, nil
}

// Flags returns the access control flags.
func (a *AccessControl) Flags() AccessControlFlags {
	return a.flags
}

// Protection returns the data protection class.
func (a *AccessControl) Protection() Accessibility {
	return a.protection
}

// RequiresCredential reports whether Evaluate needs an application password.
func (a *AccessControl) RequiresCredential() bool {
	return a.flags.Contains(ApplicationPassword)
}

// Evaluate proves that ctx satisfies the policy. Failures are returned as
// *Error so callers can carry them through opaquely.
func (a *AccessControl) Evaluate(ctx *Context) error {
	if ctx == nil {
		return newError(ErrorNotInteractive, "authentication context required")
	}
	if !ctx.IsValid() {
		return newError(ErrorInvalidContext, "context has been invalidated")
	}

	if a.flags.Contains(ApplicationPassword) {
		cred, ok := ctx.credential(CredentialApplicationPassword)
		if !ok {
			return newError(ErrorNotInteractive, "application password not set")
		}
		candidate := deriveVerifier(cred, a.salt)
		clear(cred)
		if subtle.ConstantTimeCompare(candidate, a.verifier) != 1 {
			return newError(ErrorAuthenticationFailed, "application password mismatch")
		}
	}

	if a.flags.Contains(BiometryCurrentSet) {
		state := ctx.biometryState()
		if len(state) == 0 {
			return newError(ErrorBiometryNotEnrolled, "no biometry domain state")
		}
		digest := sha256.Sum256(state)
		if subtle.ConstantTimeCompare(digest[:], a.biometry) != 1 {
			return newError(ErrorAuthenticationFailed, "biometry set changed")
		}
	}

	return nil
}

func (a *AccessControl) String() string {
	return fmt.Sprintf("AccessControl(flags=%s, protection=%s)", a.flags, a.protection)
}

type accessControlWire struct {
	Flags      AccessControlFlags `cbor:"1,keyasint"`
	Protection Accessibility      `cbor:"2,keyasint"`
	Salt       []byte             `cbor:"3,keyasint,omitempty"`
	Verifier   []byte             `cbor:"4,keyasint,omitempty"`
	Biometry   []byte             `cbor:"5,keyasint,omitempty"`
}

// MarshalBinary encodes the policy for persistence alongside key material.
func (a *AccessControl) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(accessControlWire{
		Flags:      a.flags,
		Protection: a.protection,
		Salt:       a.salt,
		Verifier:   a.verifier,
		Biometry:   a.biometry,
	})
}

// UnmarshalBinary decodes a policy produced by MarshalBinary.
func (a *AccessControl) UnmarshalBinary(data []byte) error {
	var w accessControlWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("auth: failed to decode access control: %w", err)
	}
	a.flags = w.Flags
	a.protection = w.Protection
	a.salt = w.Salt
	a.verifier = w.Verifier
	a.biometry = w.Biometry
	return nil
}

func deriveVerifier(credential, salt []byte) []byte {
	return argon2.IDKey(credential, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
