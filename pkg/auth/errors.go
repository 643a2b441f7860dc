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
	"errors"
	"fmt"
)

var (
	// ErrInvalidAccessControl indicates a flag set that cannot be turned into
	// an access control object.
	ErrInvalidAccessControl = errors.New("auth: invalid access control")

	// ErrCredentialRequired indicates the access control requires a credential
	// the context does not carry.
	ErrCredentialRequired = errors.New("auth: credential required")
)

// ErrorCode classifies an authentication failure.
type ErrorCode int

const (
	ErrorAuthenticationFailed ErrorCode = -1
	ErrorUserCancel           ErrorCode = -2
	ErrorUserFallback         ErrorCode = -3
	ErrorSystemCancel         ErrorCode = -4
	ErrorPasscodeNotSet       ErrorCode = -5
	ErrorBiometryNotAvailable ErrorCode = -6
	ErrorBiometryNotEnrolled  ErrorCode = -7
	ErrorBiometryLockout      ErrorCode = -8
	ErrorAppCancel            ErrorCode = -9
	ErrorInvalidContext       ErrorCode = -10
	ErrorNotInteractive       ErrorCode = -1004
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorAuthenticationFailed:
		return "authentication failed"
	case ErrorUserCancel:
		return "user cancel"
	case ErrorUserFallback:
		return "user fallback"
	case ErrorSystemCancel:
		return "system cancel"
	case ErrorPasscodeNotSet:
		return "passcode not set"
	case ErrorBiometryNotAvailable:
		return "biometry not available"
	case ErrorBiometryNotEnrolled:
		return "biometry not enrolled"
	case ErrorBiometryLockout:
		return "biometry lockout"
	case ErrorAppCancel:
		return "app cancel"
	case ErrorInvalidContext:
		return "invalid context"
	case ErrorNotInteractive:
		return "not interactive"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// Error is a failure of the authentication primitive itself. It is carried
// through the keychain layer opaquely.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth: %s", e.Code)
	}
	return fmt.Sprintf("auth: %s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
