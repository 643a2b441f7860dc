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

//go:build !darwin

package macos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Unsupported(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, Supported)
}
