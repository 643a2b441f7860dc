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

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(perMinute, burst int) (*Limiter, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(&Config{Enabled: true, FailuresPerMinute: perMinute, Burst: burst})
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_LocksAfterBurst(t *testing.T) {
	l, _ := newTestLimiter(1, 3)

	assert.False(t, l.Locked("key"))
	assert.False(t, l.Fail("key"))
	assert.False(t, l.Fail("key"))
	assert.True(t, l.Fail("key"))
	assert.True(t, l.Locked("key"))

	assert.False(t, l.Locked("other"))
}

func TestLimiter_Refills(t *testing.T) {
	l, now := newTestLimiter(60, 1)

	assert.True(t, l.Fail("key"))
	assert.True(t, l.Locked("key"))

	*now = now.Add(2 * time.Second)
	assert.False(t, l.Locked("key"))
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	l.Fail("key")
	assert.True(t, l.Locked("key"))
	l.Reset("key")
	assert.False(t, l.Locked("key"))
}

func TestLimiter_PrunesIdle(t *testing.T) {
	l, now := newTestLimiter(1, 1)
	l.Fail("old")

	*now = now.Add(time.Hour)
	l.Locked("new")

	stats := l.Stats()
	assert.Equal(t, 1, stats["tracked_keys"])
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(nil)
	assert.False(t, l.IsEnabled())
	for i := 0; i < 100; i++ {
		assert.False(t, l.Fail("key"))
	}
	assert.False(t, l.Locked("key"))

	l = New(&Config{Enabled: true, FailuresPerMinute: 0})
	assert.False(t, l.IsEnabled())
}
