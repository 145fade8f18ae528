// Package service is the session tracker: creation, heartbeats with idle and absolute
// expiry, extension, idempotent termination with cascading token revocation, and sweeping.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"social-tippster/backend/internal/audit"
	auditdomain "social-tippster/backend/internal/audit/domain"
	"social-tippster/backend/internal/autherr"
	"social-tippster/backend/internal/db"
	policydomain "social-tippster/backend/internal/policy/domain"
	"social-tippster/backend/internal/policy/engine"
	"social-tippster/backend/internal/session/domain"
	"social-tippster/backend/internal/session/repository"
	userdomain "social-tippster/backend/internal/user/domain"
)

const (
	// DefaultMaxAge is the hard outer bound on session age used by SweepExpired.
	DefaultMaxAge = 7 * 24 * time.Hour
	// MaxExtensionHours caps a single ExtendSession call.
	MaxExtensionHours = 30 * 24
	sweepBatch        = 200
)

// ErrInvalidExtension is returned by ExtendSession for a non-positive or oversized extension.
var ErrInvalidExtension = errors.New("session: extension hours out of range")

// TokenLedger is the part of the refresh token ledger the tracker cascades into.
type TokenLedger interface {
	Revoke(ctx context.Context, recordID string) error
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	ExtendExpiry(ctx context.Context, recordID string, at time.Time) (bool, error)
}

// UserFinder resolves the session owner for policy lookups.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Tracker implements the session tracker.
type Tracker struct {
	repo     repository.Repository
	ledger   TokenLedger
	users    UserFinder
	policies engine.Resolver
	tx       db.TxRunner
	audit    audit.AuditLogger
	clock    clock.Clock
	maxAge   time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the tracker clock.
func WithClock(c clock.Clock) Option { return func(t *Tracker) { t.clock = c } }

// WithMaxAge sets the sweep outer bound. Non-positive values keep DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.maxAge = d
		}
	}
}

// WithAuditLogger sets the login/logout analytics sink.
func WithAuditLogger(l audit.AuditLogger) Option { return func(t *Tracker) { t.audit = l } }

// NewTracker returns a Tracker. A nil policies resolver uses the static role table.
func NewTracker(repo repository.Repository, ledger TokenLedger, users UserFinder, policies engine.Resolver, tx db.TxRunner, opts ...Option) *Tracker {
	if policies == nil {
		policies = engine.StaticResolver{}
	}
	t := &Tracker{
		repo:     repo,
		ledger:   ledger,
		users:    users,
		policies: policies,
		tx:       tx,
		clock:    clock.New(),
		maxAge:   DefaultMaxAge,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// CreateSession persists a new active session on refreshTokenID and records the login.
func (t *Tracker) CreateSession(ctx context.Context, userID, refreshTokenID string, meta domain.DeviceMetadata) (*domain.UserSession, error) {
	now := t.clock.Now().UTC()
	s := &domain.UserSession{
		ID:                uuid.New().String(),
		UserID:            userID,
		RefreshTokenID:    refreshTokenID,
		SessionStart:      now,
		IsActive:          true,
		LastActivity:      now,
		RememberMe:        meta.RememberMe,
		IPAddress:         meta.IP,
		UserAgent:         meta.UserAgent,
		DeviceFingerprint: meta.Fingerprint,
	}
	if err := t.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	t.logEvent(ctx, s, auditdomain.ActionLogin, map[string]string{
		"remember_me": strconv.FormatBool(meta.RememberMe),
		"fingerprint": meta.Fingerprint,
	})
	return s, nil
}

// Get returns the session for id or autherr.ErrNotFound.
func (t *Tracker) Get(ctx context.Context, sessionID string) (*domain.UserSession, error) {
	s, err := t.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s == nil {
		return nil, autherr.ErrNotFound
	}
	return s, nil
}

// ListActive returns the active sessions of userID, most recently used first.
func (t *Tracker) ListActive(ctx context.Context, userID string) ([]*domain.UserSession, error) {
	list, err := t.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// Policy resolves the expiry policy for s from its owner's role and remember-me flag.
func (t *Tracker) Policy(ctx context.Context, s *domain.UserSession) (policydomain.SessionExpiryPolicy, error) {
	role := string(userdomain.RoleUser)
	if t.users != nil {
		u, err := t.users.FindByID(ctx, s.UserID)
		if err != nil {
			return policydomain.SessionExpiryPolicy{}, fmt.Errorf("find session owner: %w", err)
		}
		if u != nil {
			role = string(u.Role)
		}
	}
	return t.policies.Resolve(ctx, role, s.RememberMe), nil
}

// RecordActivity stamps a heartbeat on the session, then applies the idle and absolute
// limits. Idle time is measured from the previous activity. A session past either limit
// is terminated in the same unit and the returned activity reflects that.
func (t *Tracker) RecordActivity(ctx context.Context, sessionID string) (*domain.SessionActivity, error) {
	var activity *domain.SessionActivity
	var ended *domain.UserSession
	err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
		activity, ended = nil, nil
		s, err := t.repo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		if s == nil {
			return autherr.ErrNotFound
		}
		if !s.IsActive {
			activity = inactiveActivity(s)
			return nil
		}
		policy, err := t.Policy(ctx, s)
		if err != nil {
			return err
		}
		now := t.clock.Now().UTC()
		idleFor := now.Sub(s.LastActivity)
		age := now.Sub(s.SessionStart)

		if _, err := t.repo.RecordActivity(ctx, s.ID, now); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		s.LastActivity = now
		s.ActivityCount++

		var reason domain.ExpiryReason
		switch {
		case age > policy.AbsoluteTimeout():
			reason = domain.ReasonAbsoluteTimeout
		case idleFor > policy.IdleTimeout():
			reason = domain.ReasonIdleTimeout
		}
		if reason != "" {
			if _, err := t.terminate(ctx, s.ID, reason, now); err != nil {
				return err
			}
			end := now
			s.IsActive, s.SessionEnd, s.ExpiryReason = false, &end, reason
			activity = inactiveActivity(s)
			ended = s
			return nil
		}
		activity = &domain.SessionActivity{
			SessionID:         s.ID,
			IsActive:          true,
			IdleRemaining:     policy.IdleTimeout(),
			AbsoluteRemaining: policy.AbsoluteTimeout() - age,
			LastActivity:      s.LastActivity,
			ActivityCount:     s.ActivityCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ended != nil {
		t.logEvent(ctx, ended, auditdomain.ActionSessionExpired, map[string]string{"reason": string(ended.ExpiryReason)})
	}
	return activity, nil
}

func inactiveActivity(s *domain.UserSession) *domain.SessionActivity {
	return &domain.SessionActivity{
		SessionID:     s.ID,
		IsActive:      false,
		IsIdle:        s.ExpiryReason == domain.ReasonIdleTimeout,
		ExpiryReason:  s.ExpiryReason,
		LastActivity:  s.LastActivity,
		ActivityCount: s.ActivityCount,
	}
}

// ExtendSession pushes the linked refresh token's expiry out to now + extensionHours and
// stamps the extension. A terminated session is returned unchanged.
func (t *Tracker) ExtendSession(ctx context.Context, sessionID string, extensionHours int) (*domain.UserSession, error) {
	if extensionHours <= 0 || extensionHours > MaxExtensionHours {
		return nil, ErrInvalidExtension
	}
	var out *domain.UserSession
	extended := false
	err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
		out, extended = nil, false
		s, err := t.repo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("extend session: %w", err)
		}
		if s == nil {
			return autherr.ErrNotFound
		}
		out = s
		if !s.IsActive {
			return nil
		}
		now := t.clock.Now().UTC()
		if _, err := t.ledger.ExtendExpiry(ctx, s.RefreshTokenID, now.Add(time.Duration(extensionHours)*time.Hour)); err != nil {
			return err
		}
		ok, err := t.repo.MarkExtended(ctx, s.ID, now)
		if err != nil {
			return fmt.Errorf("extend session: %w", err)
		}
		if ok {
			s.ExtendedAt = &now
			s.ExtensionCount++
			extended = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if extended {
		t.logEvent(ctx, out, auditdomain.ActionSessionExtend, map[string]string{"hours": strconv.Itoa(extensionHours)})
	}
	return out, nil
}

// TerminateSession ends the session with reason and revokes its refresh token. It reports
// whether this call ended it; an already inactive session is a no-op. A missing session
// is autherr.ErrNotFound.
func (t *Tracker) TerminateSession(ctx context.Context, sessionID string, reason domain.ExpiryReason) (bool, error) {
	if !reason.Valid() {
		return false, fmt.Errorf("terminate session: invalid reason %q", reason)
	}
	var (
		ended bool
		s     *domain.UserSession
	)
	err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		s, err = t.repo.GetByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("terminate session: %w", err)
		}
		if s == nil {
			return autherr.ErrNotFound
		}
		ended, err = t.terminate(ctx, sessionID, reason, t.clock.Now().UTC())
		return err
	})
	if err != nil {
		return false, err
	}
	if ended {
		t.logEvent(ctx, s, actionFor(reason), map[string]string{"reason": string(reason)})
	}
	return ended, nil
}

// terminate is the compare-and-set end of one session plus the token cascade. Callers run
// it inside a unit of work.
func (t *Tracker) terminate(ctx context.Context, sessionID string, reason domain.ExpiryReason, now time.Time) (bool, error) {
	tokenID, ok, err := t.repo.Terminate(ctx, sessionID, reason, now)
	if err != nil {
		return false, fmt.Errorf("terminate session: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := t.ledger.Revoke(ctx, tokenID); err != nil {
		return false, err
	}
	return true, nil
}

// TerminateAllForUser ends every active session of userID with reason logout_all and
// revokes all of the user's refresh tokens. Returns the number of sessions ended.
func (t *Tracker) TerminateAllForUser(ctx context.Context, userID string) (int, error) {
	return t.terminateAll(ctx, userID, auditdomain.ActionLogoutAll)
}

// RevokeUserSessions is TerminateAllForUser on behalf of an administrator.
func (t *Tracker) RevokeUserSessions(ctx context.Context, adminID, userID string) (int, error) {
	n, err := t.terminateAll(ctx, userID, auditdomain.ActionAdminRevoke)
	if err == nil && adminID != "" {
		t.logEvent(ctx, &domain.UserSession{UserID: adminID}, auditdomain.ActionAdminRevoke,
			map[string]string{"target_user": userID, "sessions": strconv.Itoa(n)})
	}
	return n, err
}

func (t *Tracker) terminateAll(ctx context.Context, userID, action string) (int, error) {
	var n int
	err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = t.repo.TerminateAllForUser(ctx, userID, domain.ReasonLogoutAll, t.clock.Now().UTC())
		if err != nil {
			return fmt.Errorf("terminate sessions for user: %w", err)
		}
		_, err = t.ledger.RevokeAllForUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 && action == auditdomain.ActionLogoutAll {
		t.logEvent(ctx, &domain.UserSession{UserID: userID}, action, map[string]string{"sessions": strconv.Itoa(n)})
	}
	return n, nil
}

// SweepExpired ends, with reason cleanup_expired, every active session whose refresh token
// has expired or that started more than the max age ago. Safe alongside live traffic since
// each termination is a compare-and-set.
func (t *Tracker) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		now := t.clock.Now().UTC()
		batch, err := t.repo.ListExpired(ctx, now, now.Add(-t.maxAge), sweepBatch)
		if err != nil {
			return total, fmt.Errorf("sweep sessions: %w", err)
		}
		for _, s := range batch {
			var ended bool
			err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
				var err error
				ended, err = t.terminate(ctx, s.ID, domain.ReasonCleanupExpired, now)
				return err
			})
			if err != nil {
				return total, err
			}
			if ended {
				total++
			}
		}
		if len(batch) < sweepBatch {
			return total, nil
		}
	}
}

func actionFor(reason domain.ExpiryReason) string {
	switch reason {
	case domain.ReasonLogout:
		return auditdomain.ActionLogout
	case domain.ReasonLogoutAll:
		return auditdomain.ActionLogoutAll
	default:
		return auditdomain.ActionSessionExpired
	}
}

func (t *Tracker) logEvent(ctx context.Context, s *domain.UserSession, action string, meta map[string]string) {
	if t.audit == nil {
		return
	}
	t.audit.LogEvent(ctx, audit.Event{
		UserID:    s.UserID,
		SessionID: s.ID,
		Action:    action,
		IP:        s.IPAddress,
		UserAgent: s.UserAgent,
		Metadata:  meta,
	})
}
