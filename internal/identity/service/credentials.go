package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"social-tippster/backend/internal/autherr"
	"social-tippster/backend/internal/lockout"
	"social-tippster/backend/internal/telemetry"
	telemetrydomain "social-tippster/backend/internal/telemetry/domain"
	userdomain "social-tippster/backend/internal/user/domain"
)

const (
	// DefaultMaxAttempts is the number of attempts per identifier allowed inside one lockout window.
	DefaultMaxAttempts = 5
	// DefaultLockoutWindow is how long an identifier stays locked after its last counted attempt.
	DefaultLockoutWindow = 15 * time.Minute
)

// UserByEmail is the user directory lookup used to authenticate.
type UserByEmail interface {
	FindByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// PasswordComparer verifies secrets. CompareDummy spends comparable work for unknown users.
type PasswordComparer interface {
	Compare(hash string, password []byte) error
	CompareDummy(password []byte)
}

// CredentialValidator checks an identifier and secret against the user directory and owns
// the brute-force counter for the identifier.
type CredentialValidator struct {
	users       UserByEmail
	hasher      PasswordComparer
	counter     lockout.Counter
	events      telemetry.Recorder
	clock       clock.Clock
	maxAttempts int
	window      time.Duration
}

// NewCredentialValidator returns a CredentialValidator. Non-positive maxAttempts or window
// fall back to 5 attempts in 15 minutes.
func NewCredentialValidator(users UserByEmail, hasher PasswordComparer, counter lockout.Counter, events telemetry.Recorder, clk clock.Clock, maxAttempts int, window time.Duration) *CredentialValidator {
	if clk == nil {
		clk = clock.New()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	return &CredentialValidator{
		users:       users,
		hasher:      hasher,
		counter:     counter,
		events:      events,
		clock:       clk,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Authenticate returns the active, unbanned user for identifier and secret. Every attempt
// is counted against the identifier before the secret is looked at, and a locked
// identifier fails with a LockedOut error without a comparison, so concurrent attempts
// can run at most maxAttempts comparisons per window. Unknown identifiers and wrong
// secrets both fail with autherr.ErrInvalidCredentials. Success clears the count.
func (v *CredentialValidator) Authenticate(ctx context.Context, identifier, secret, ip string) (*userdomain.User, error) {
	key := userdomain.NormalizeEmail(identifier)
	subject := telemetrydomain.Subject{Identifier: key, IP: ip}
	now := v.clock.Now().UTC()

	state, ok, err := v.counter.Reserve(ctx, key, now, v.maxAttempts, v.window)
	if err != nil {
		return nil, fmt.Errorf("authenticate: reserve attempt: %w", err)
	}
	if !ok {
		_, remaining := state.LockedAt(now, v.maxAttempts, v.window)
		v.record(ctx, telemetrydomain.EventBruteForceAttempt, subject, map[string]string{
			"reason":      "locked_out",
			"failures":    strconv.Itoa(state.Failures),
			"retry_after": remaining.Round(time.Second).String(),
		})
		return nil, autherr.LockedOut(remaining)
	}

	var u *userdomain.User
	if key != "" {
		if u, err = v.users.FindByEmail(ctx, key); err != nil {
			return nil, fmt.Errorf("authenticate: find user: %w", err)
		}
	}
	if u == nil {
		v.hasher.CompareDummy([]byte(secret))
		return nil, v.fail(ctx, state, subject, "unknown_identifier")
	}
	subject.UserID = u.ID
	if err := v.hasher.Compare(u.PasswordHash, []byte(secret)); err != nil {
		return nil, v.fail(ctx, state, subject, "bad_secret")
	}

	if err := v.counter.Reset(ctx, key); err != nil {
		return nil, fmt.Errorf("authenticate: reset lockout: %w", err)
	}
	if u.IsBanned {
		v.record(ctx, telemetrydomain.EventFailedLogin, subject, map[string]string{"reason": "banned"})
		return nil, autherr.ErrBanned
	}
	if !u.IsActive {
		v.record(ctx, telemetrydomain.EventFailedLogin, subject, map[string]string{"reason": "inactive"})
		return nil, autherr.ErrInactive
	}
	return u, nil
}

// fail reports the reserved attempt as a failure; the one that reaches the threshold is escalated.
func (v *CredentialValidator) fail(ctx context.Context, state lockout.State, subject telemetrydomain.Subject, reason string) error {
	failures := strconv.Itoa(state.Failures)
	v.record(ctx, telemetrydomain.EventFailedLogin, subject, map[string]string{"reason": reason, "failures": failures})
	if state.Failures == v.maxAttempts {
		v.record(ctx, telemetrydomain.EventBruteForceAttempt, subject, map[string]string{
			"reason":   "threshold_reached",
			"failures": failures,
		})
	}
	return autherr.ErrInvalidCredentials
}

func (v *CredentialValidator) record(ctx context.Context, t telemetrydomain.EventType, s telemetrydomain.Subject, details map[string]string) {
	if v.events != nil {
		v.events.Record(ctx, t, s, details)
	}
}
