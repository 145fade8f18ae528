// Package lockout tracks failed authentication attempts per credential identifier.
// Counters are ephemeral: in process memory for single-instance deployments, or in
// Redis when several instances share the same identifiers.
package lockout

import (
	"context"
	"time"
)

// State is the failure history for one identifier.
type State struct {
	Failures      int
	LastAttemptAt time.Time
}

// LockedAt reports whether s is locked at now for the given threshold and window, and for how much longer.
func (s State) LockedAt(now time.Time, maxAttempts int, window time.Duration) (bool, time.Duration) {
	if s.Failures < maxAttempts || s.LastAttemptAt.IsZero() {
		return false, 0
	}
	remaining := s.LastAttemptAt.Add(window).Sub(now)
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

// WindowElapsed reports whether the lockout window since the last attempt has passed.
func (s State) WindowElapsed(now time.Time, window time.Duration) bool {
	return !s.LastAttemptAt.IsZero() && !now.Before(s.LastAttemptAt.Add(window))
}

// Counter is a store of per-identifier attempt counts. Reserve is the only gate for an
// authentication attempt: checking the lock and counting the attempt happen in one
// atomic step, so concurrent attempts for one identifier can never all pass a stale read.
type Counter interface {
	// Get returns the current state for key; a zero State when none exists.
	Get(ctx context.Context, key string) (State, error)
	// Reserve counts one attempt stamped at, unless key is locked at that instant. A state
	// whose window has elapsed starts over from zero. ok is false when locked, and the
	// returned state is then the locking one.
	Reserve(ctx context.Context, key string, at time.Time, maxAttempts int, window time.Duration) (s State, ok bool, err error)
	// Reset clears key.
	Reset(ctx context.Context, key string) error
}

// reserve applies one attempt to s. MemoryCounter runs it under its mutex; the Redis
// script implements the same steps.
func reserve(s State, at time.Time, maxAttempts int, window time.Duration) (State, bool) {
	if locked, _ := s.LockedAt(at, maxAttempts, window); locked {
		return s, false
	}
	if s.WindowElapsed(at, window) {
		s = State{}
	}
	s.Failures++
	s.LastAttemptAt = at
	return s, true
}
