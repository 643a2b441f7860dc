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
package validation

import (
	"strings"
	"testing"
)

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantErr bool
	}{
		// Valid labels
		{"valid alphanumeric", "message", false},
		{"valid with dash", "key-change", false},
		{"valid with spaces", "wallet seed", false},
		{"valid unicode", "clé", false},
		{"valid derived", "<unset>-change", false},
		{"valid max length", strings.Repeat("a", 255), false},

		// Invalid labels
		{"empty string", "", true},
		{"null byte", "key\x00name", true},
		{"control character", "key\nname", true},
		{"control character tab", "key\tname", true},
		{"delete character", "key\x7fname", true},
		{"leading space", " key", true},
		{"trailing space", "key ", true},
		{"too long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAccount(t *testing.T) {
	if err := ValidateAccount(""); err != nil {
		t.Errorf("empty account should be valid, got %v", err)
	}
	if err := ValidateAccount("alice"); err != nil {
		t.Errorf("ValidateAccount(alice) = %v", err)
	}
	if err := ValidateAccount("ali\x00ce"); err == nil {
		t.Error("expected error for null byte")
	}
}

func TestValidateAccessGroup(t *testing.T) {
	tests := []struct {
		name    string
		group   string
		wantErr bool
	}{
		{"valid reverse dns", "group.keychain.testapp", false},
		{"valid team prefix", "ABCDE12345.com.example.shared", false},
		{"valid single segment", "shared", false},
		{"valid dash underscore", "group.my-app_v2", false},

		{"empty string", "", true},
		{"leading dot", ".group", true},
		{"trailing dot", "group.", true},
		{"double dot", "group..app", true},
		{"slash", "group/app", true},
		{"space", "group app", true},
		{"too long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccessGroup(tt.group)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccessGroup(%q) error = %v, wantErr %v", tt.group, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"normal string", "hello world", "hello world"},
		{"with newline", "hello\nworld", "helloworld"},
		{"with null byte", "hello\x00world", "helloworld"},
		{"with carriage return", "hello\r\nforged log line", "helloforged log line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	long := strings.Repeat("a", 1500)
	if got := SanitizeForLog(long); len(got) != 1000+len("...[truncated]") {
		t.Errorf("expected truncation, got length %d", len(got))
	}
}
