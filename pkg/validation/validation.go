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
// Package validation provides input validation for identities entered at the
// edges of go-seckeychain (CLI flags, configuration files). The keychain
// itself treats labels as opaque; these checks keep operator input free of
// control characters and out of the access group namespace conventions.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxLabelLength bounds labels and accounts.
	MaxLabelLength = 255

	// MaxAccessGroupLength bounds access group identifiers.
	MaxAccessGroupLength = 255
)

// accessGroupPattern matches reverse-DNS style access groups, optionally
// prefixed with a team identifier (e.g. "ABCDE12345.com.example.shared").
var accessGroupPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]*(\.[A-Za-z0-9_\-]+)*$`)

// ValidateLabel validates an item or key label.
// Prevents injection and log forging by:
// - Rejecting empty strings
// - Rejecting null bytes and other control characters
// - Enforcing length limits
func ValidateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	return validateText("label", label)
}

// ValidateAccount validates an account qualifier. Accounts are optional.
func ValidateAccount(account string) error {
	if account == "" {
		return nil
	}
	return validateText("account", account)
}

// ValidateAccessGroup validates an access group identifier.
func ValidateAccessGroup(group string) error {
	if group == "" {
		return fmt.Errorf("access group cannot be empty")
	}

	// Check length before the pattern (prevent ReDoS)
	if len(group) > MaxAccessGroupLength {
		return fmt.Errorf("access group too long (max %d characters)", MaxAccessGroupLength)
	}

	if !accessGroupPattern.MatchString(group) {
		return fmt.Errorf("access group contains invalid characters (allowed: dot separated a-z, A-Z, 0-9, -, _)")
	}

	return nil
}

func validateText(what, s string) error {
	if strings.Contains(s, "\x00") {
		return fmt.Errorf("%s contains null byte", what)
	}

	if len(s) > MaxLabelLength {
		return fmt.Errorf("%s too long (max %d characters)", what, MaxLabelLength)
	}

	for _, r := range s {
		if r < 32 || r == 127 {
			return fmt.Errorf("%s contains control characters", what)
		}
	}

	if strings.TrimSpace(s) != s {
		return fmt.Errorf("%s has leading or trailing whitespace", what)
	}

	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}
