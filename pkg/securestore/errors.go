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

package securestore

import (
	"errors"
	"fmt"
)

// Status is a store result code. Values follow OSStatus so codes reported by
// platform stores pass through unchanged.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusUnimplemented         Status = -4
	StatusParam                 Status = -50
	StatusAllocate              Status = -108
	StatusNotAvailable          Status = -25291
	StatusAuthFailed            Status = -25293
	StatusDuplicateItem         Status = -25299
	StatusItemNotFound          Status = -25300
	StatusInteractionNotAllowed Status = -25308
	StatusDecode                Status = -26275
	StatusMissingEntitlement    Status = -34018
	StatusInvalidRecord         Status = -67701
)

func (s Status) message() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnimplemented:
		return "function or operation not implemented"
	case StatusParam:
		return "one or more parameters passed to a function were not valid"
	case StatusAllocate:
		return "failed to allocate memory"
	case StatusNotAvailable:
		return "no keychain is available"
	case StatusAuthFailed:
		return "the user name or passphrase you entered is not correct"
	case StatusDuplicateItem:
		return "the specified item already exists in the keychain"
	case StatusItemNotFound:
		return "the specified item could not be found in the keychain"
	case StatusInteractionNotAllowed:
		return "user interaction is not allowed"
	case StatusDecode:
		return "unable to decode the provided data"
	case StatusMissingEntitlement:
		return "a required entitlement isn't present"
	case StatusInvalidRecord:
		return "the specified record is invalid"
	default:
		return "unknown status"
	}
}

func (s Status) Error() string {
	return fmt.Sprintf("securestore: %s (OSStatus %d)", s.message(), int32(s))
}

// StatusOf extracts the status carried by err. The second return is false
// when err carries no status.
func StatusOf(err error) (Status, bool) {
	if err == nil {
		return StatusSuccess, true
	}
	var status Status
	if errors.As(err, &status) {
		return status, true
	}
	var perr *PlatformError
	if errors.As(err, &perr) {
		return Status(perr.Code), true
	}
	return 0, false
}

// Error domains reported by PlatformError.
const (
	DomainOSStatus      = "NSOSStatusErrorDomain"
	DomainCryptoToolkit = "CryptoTokenKit"
)

// RecoverySuggestionKey is the UserInfo key holding a recovery hint.
const RecoverySuggestionKey = "NSLocalizedRecoverySuggestion"

// PlatformError is a failure of a platform primitive that is not a plain
// store status, such as a cipher failure.
type PlatformError struct {
	Domain   string
	Code     int
	UserInfo map[string]string
	Err      error
}

func (e *PlatformError) Error() string {
	msg := fmt.Sprintf("%s error %d", e.Domain, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewPlatformError wraps err under domain and code.
func NewPlatformError(domain string, code int, err error) *PlatformError {
	return &PlatformError{
		Domain:   domain,
		Code:     code,
		UserInfo: make(map[string]string),
		Err:      err,
	}
}
