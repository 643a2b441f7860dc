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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	status, ok := StatusOf(nil)
	assert.True(t, ok)
	assert.Equal(t, StatusSuccess, status)

	status, ok = StatusOf(fmt.Errorf("wrapped: %w", StatusDuplicateItem))
	assert.True(t, ok)
	assert.Equal(t, StatusDuplicateItem, status)

	status, ok = StatusOf(NewPlatformError(DomainOSStatus, int(StatusParam), errors.New("bad")))
	assert.True(t, ok)
	assert.Equal(t, StatusParam, status)

	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestStatus_Error(t *testing.T) {
	assert.Contains(t, StatusItemNotFound.Error(), "-25300")
	assert.Contains(t, Status(-1).Error(), "unknown status")
	assert.True(t, errors.Is(fmt.Errorf("x: %w", StatusMissingEntitlement), StatusMissingEntitlement))
}

func TestIdentity_Matches(t *testing.T) {
	item := Identity{Label: "message", Account: "alice"}

	assert.True(t, Identity{}.Matches(item))
	assert.True(t, Identity{Label: "message"}.Matches(item))
	assert.True(t, Identity{Label: "message", Account: "alice"}.Matches(item))
	assert.False(t, Identity{Label: "message", Account: "bob"}.Matches(item))
	assert.False(t, Identity{Label: "other"}.Matches(item))
}

func TestPlatformError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewPlatformError(DomainCryptoToolkit, -3, inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "CryptoTokenKit error -3")
}
