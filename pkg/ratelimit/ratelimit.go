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

// Package ratelimit throttles repeated authentication failures against
// protected keys. Each key gets its own token bucket; a failed evaluation
// consumes a token and an empty bucket locks the key out until the bucket
// refills.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements a token bucket limiter with per-key tracking.
// It uses the golang.org/x/time/rate package for efficient, thread-safe rate limiting.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	enabled  bool
	maxIdle  time.Duration
	now      func() time.Time
}

// Config holds limiter configuration.
type Config struct {
	// Enabled controls whether limiting is active.
	Enabled bool

	// FailuresPerMinute sets the sustained rate at which failures are
	// forgiven.
	FailuresPerMinute int

	// Burst is the number of consecutive failures tolerated before lockout.
	// If not set, defaults to FailuresPerMinute.
	Burst int

	// MaxIdle is how long an untouched key is tracked. Defaults to 30 minutes.
	MaxIdle time.Duration
}

// New creates a new limiter with the given configuration.
func New(config *Config) *Limiter {
	if config == nil || config.FailuresPerMinute <= 0 {
		config = &Config{Enabled: false}
	}

	burst := config.Burst
	if burst == 0 {
		burst = config.FailuresPerMinute
	}

	maxIdle := config.MaxIdle
	if maxIdle == 0 {
		maxIdle = 30 * time.Minute
	}

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(config.FailuresPerMinute) / 60.0),
		burst:    burst,
		enabled:  config.Enabled,
		maxIdle:  maxIdle,
		now:      time.Now,
	}
}

// getLimiter returns the limiter for id, creating it if needed. Idle
// entries are pruned opportunistically. Callers hold l.mu.
func (l *Limiter) getLimiter(id string) *rate.Limiter {
	now := l.now()
	for other, seen := range l.lastSeen {
		if now.Sub(seen) > l.maxIdle {
			delete(l.limiters, other)
			delete(l.lastSeen, other)
		}
	}

	limiter, exists := l.limiters[id]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[id] = limiter
	}
	l.lastSeen[id] = now
	return limiter
}

// Locked reports whether id has exhausted its failure budget.
func (l *Limiter) Locked(id string) bool {
	if !l.enabled {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLimiter(id).TokensAt(l.now()) < 1
}

// Fail records a failed attempt for id. It returns true when the failure
// exhausted the remaining budget.
func (l *Limiter) Fail(id string) bool {
	if !l.enabled {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	limiter := l.getLimiter(id)
	limiter.AllowN(now, 1)
	return limiter.TokensAt(now) < 1
}

// Reset forgets the failures recorded for id.
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, id)
	delete(l.lastSeen, id)
}

// IsEnabled returns whether limiting is active.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"enabled":      l.enabled,
		"tracked_keys": len(l.limiters),
		"rate_per_min": float64(l.rate) * 60,
		"burst":        l.burst,
	}
}
