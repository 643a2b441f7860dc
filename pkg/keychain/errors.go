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
package keychain

import (
	"errors"
	"fmt"
	"maps"

	"github.com/jeremyhahn/go-seckeychain/pkg/auth"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
)

// Kind classifies keychain failures.
type Kind int

const (
	// KindGeneral is an operation specific failure. The message carries the
	// store status when one was reported.
	KindGeneral Kind = iota + 1

	// KindNotFound reports a missing item on a load path.
	KindNotFound

	// KindDuplicateItem reports an identity that is already taken.
	KindDuplicateItem

	// KindInconsistency reports a violated protocol invariant, such as a
	// verification mismatch. It signals a setup or configuration problem
	// rather than a transient store failure.
	KindInconsistency

	// KindAuthentication carries an authentication failure through opaquely.
	KindAuthentication

	// KindUnderlying carries a platform error with a recovery suggestion.
	KindUnderlying

	// KindInvalid is the catch-all.
	KindInvalid
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrGeneral        = errors.New("keychain: general error")
	ErrNotFound       = errors.New("keychain: not found")
	ErrDuplicateItem  = errors.New("keychain: duplicate item")
	ErrInconsistency  = errors.New("keychain: inconsistency")
	ErrAuthentication = errors.New("keychain: authentication failed")
	ErrUnderlying     = errors.New("keychain: underlying error")
	ErrInvalid        = errors.New("keychain: invalid")
)

// Configuration errors
var (
	// ErrStoreRequired indicates no secure store was configured.
	ErrStoreRequired = errors.New("keychain: store is required")

	// ErrCipherRequired indicates no cipher was configured and the store
	// does not implement one.
	ErrCipherRequired = errors.New("keychain: cipher is required")
)

func (k Kind) sentinel() error {
	switch k {
	case KindGeneral:
		return ErrGeneral
	case KindNotFound:
		return ErrNotFound
	case KindDuplicateItem:
		return ErrDuplicateItem
	case KindInconsistency:
		return ErrInconsistency
	case KindAuthentication:
		return ErrAuthentication
	case KindUnderlying:
		return ErrUnderlying
	default:
		return ErrInvalid
	}
}

func (k Kind) String() string {
	switch k {
	case KindGeneral:
		return "general"
	case KindNotFound:
		return "not_found"
	case KindDuplicateItem:
		return "duplicate_item"
	case KindInconsistency:
		return "inconsistency"
	case KindAuthentication:
		return "authentication"
	case KindUnderlying:
		return "underlying"
	default:
		return "invalid"
	}
}

// Error is the failure type returned by every Keychain operation. Raw store
// statuses never reach callers; they are reachable through Unwrap for
// diagnostics only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnderlying:
		if e.Err == nil {
			return e.Message
		}
		return e.Message + " " + e.Err.Error()
	case KindAuthentication:
		if e.Err == nil {
			return "Authentication failed."
		}
		return "Authentication failed. " + e.Err.Error()
	case KindInconsistency:
		msg := "Inconsistency in setup, configuration or keychain. " + e.Message
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case KindGeneral:
		return "General error: " + e.Message
	case KindNotFound:
		return "Not found: " + e.Message
	case KindDuplicateItem:
		return "Duplicate item: " + e.Message
	default:
		return "Invalid"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInvalid when there is none.
func KindOf(err error) Kind {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	return KindInvalid
}

// RecoverySuggestion returns the recovery hint attached to a platform error
// in err's chain.
func RecoverySuggestion(err error) string {
	var perr *securestore.PlatformError
	if errors.As(err, &perr) {
		return perr.UserInfo[securestore.RecoverySuggestionKey]
	}
	return ""
}

func general(err error, format string, args ...any) *Error {
	return &Error{Kind: KindGeneral, Message: fmt.Sprintf(format, args...), Err: err}
}

func notFound(err error, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Err: err}
}

func duplicate(err error, format string, args ...any) *Error {
	return &Error{Kind: KindDuplicateItem, Message: fmt.Sprintf(format, args...), Err: err}
}

func inconsistency(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInconsistency, Message: fmt.Sprintf(format, args...), Err: err}
}

func invalid() *Error {
	return &Error{Kind: KindInvalid}
}

// osStatusSearch is the recovery hint attached to platform errors that carry
// none.
const osStatusSearch = "See https://www.osstatus.com/search/results?platform=all&framework=all&search=%d"

// fromError translates a cipher or policy failure at the platform boundary.
// Authentication failures are carried through, platform errors gain a
// recovery suggestion, and anything else is an inconsistency.
func fromError(err error, message string) *Error {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return &Error{Kind: KindAuthentication, Message: message, Err: authErr}
	}

	var perr *securestore.PlatformError
	if !errors.As(err, &perr) {
		if status, ok := securestore.StatusOf(err); ok && status != securestore.StatusSuccess {
			perr = securestore.NewPlatformError(securestore.DomainOSStatus, int(status), err)
		}
	}
	if perr != nil {
		info := maps.Clone(perr.UserInfo)
		if info == nil {
			info = make(map[string]string, 1)
		}
		if _, ok := info[securestore.RecoverySuggestionKey]; !ok {
			info[securestore.RecoverySuggestionKey] = fmt.Sprintf(osStatusSearch, perr.Code)
		}
		return &Error{
			Kind:    KindUnderlying,
			Message: message,
			Err: &securestore.PlatformError{
				Domain:   perr.Domain,
				Code:     perr.Code,
				UserInfo: info,
				Err:      perr.Err,
			},
		}
	}

	return inconsistency(err, "%s Unknown error occurred.", message)
}
