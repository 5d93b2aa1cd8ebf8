// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// authorityLimiter implements per-authority token-bucket rate limiting for
// probes. A nil *authorityLimiter never blocks.
type authorityLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// newAuthorityLimiter returns a limiter allowing r probes per second per
// authority with the given burst. A non-positive r disables limiting.
func newAuthorityLimiter(r float64, burst int) *authorityLimiter {
	if r <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &authorityLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(r),
		burst:    burst,
	}
}

// get returns the limiter for authority, creating it on first use.
func (l *authorityLimiter) get(authority string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[authority]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[authority] = lim
	}
	return lim
}

// Wait blocks until a probe of authority is permitted or ctx is done.
func (l *authorityLimiter) Wait(ctx context.Context, authority string) error {
	if l == nil {
		return nil
	}
	return l.get(authority).Wait(ctx)
}

