// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package clinic

import (
	"sync"
	"time"
)

// Lockout tracks failed verification attempts per phone number and denies
// further attempts once the threshold is reached inside the sliding window.
// It is enforced by the verification-gated tools themselves, independent of
// the agent loop's step budget.
type Lockout struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	now       func() time.Time
	failures  map[string][]time.Time
}

const (
	defaultLockoutThreshold = 5
	defaultLockoutWindow    = 15 * time.Minute
)

// NewLockout creates a Lockout with the given policy. Zero values select the
// defaults (5 failures in 15 minutes).
func NewLockout(threshold int, window time.Duration) *Lockout {
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}
	if window <= 0 {
		window = defaultLockoutWindow
	}
	return &Lockout{
		threshold: threshold,
		window:    window,
		now:       time.Now,
		failures:  make(map[string][]time.Time),
	}
}

// Locked reports whether the phone has reached the failure threshold within
// the window. Expired failures are pruned as a side effect.
func (l *Lockout) Locked(phone string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(phone)) >= l.threshold
}

// RecordFailure notes one failed verification attempt for the phone.
func (l *Lockout) RecordFailure(phone string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[phone] = append(l.prune(phone), l.now())
}

// Reset clears the failure history for the phone after a successful
// verification.
func (l *Lockout) Reset(phone string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, phone)
}

// prune drops failures outside the window. Caller must hold mu.
func (l *Lockout) prune(phone string) []time.Time {
	cutoff := l.now().Add(-l.window)
	kept := l.failures[phone][:0]
	for _, ts := range l.failures[phone] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, phone)
		return nil
	}
	l.failures[phone] = kept
	return kept
}
