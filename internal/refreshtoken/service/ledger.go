// Package service is the refresh token ledger: issuance, single-use rotation with replay
// detection, revocation and expiry extension.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"social-tippster/backend/internal/autherr"
	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/refreshtoken/domain"
	"social-tippster/backend/internal/refreshtoken/repository"
	"social-tippster/backend/internal/security"
	"social-tippster/backend/internal/telemetry"
	telemetrydomain "social-tippster/backend/internal/telemetry/domain"
	userdomain "social-tippster/backend/internal/user/domain"
)

// UserFinder is the user directory lookup the ledger needs to re-check status on rotation.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionLinker repoints the session holding oldTokenID to newTokenID and returns its id,
// or "" when no session holds the token.
type SessionLinker interface {
	RepointRefreshToken(ctx context.Context, oldTokenID, newTokenID string) (string, error)
}

// Issued is a freshly minted refresh token and its ledger entry.
type Issued struct {
	Record *domain.RefreshToken
	Token  string
}

// Rotation is the result of a successful Rotate.
type Rotation struct {
	UserID           string
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	RecordID         string
}

// Ledger implements the refresh token ledger.
type Ledger struct {
	repo     repository.Repository
	users    UserFinder
	sessions SessionLinker
	tokens   *security.TokenProvider
	tx       db.TxRunner
	events   telemetry.Recorder
	clock    clock.Clock
}

// NewLedger returns a Ledger. sessions may be nil when no session tracker is wired; events
// may be nil to drop security events.
func NewLedger(
	repo repository.Repository,
	users UserFinder,
	sessions SessionLinker,
	tokens *security.TokenProvider,
	tx db.TxRunner,
	events telemetry.Recorder,
	clk clock.Clock,
) *Ledger {
	if clk == nil {
		clk = clock.New()
	}
	return &Ledger{repo: repo, users: users, sessions: sessions, tokens: tokens, tx: tx, events: events, clock: clk}
}

// Issue creates and persists a new entry for userID with expires_at = now + refresh lifetime.
func (l *Ledger) Issue(ctx context.Context, userID string) (*Issued, error) {
	now := l.clock.Now().UTC()
	return l.issue(ctx, userID, now.Add(l.tokens.RefreshTTL()), now)
}

func (l *Ledger) issue(ctx context.Context, userID string, expiresAt, now time.Time) (*Issued, error) {
	id := uuid.New().String()
	token, err := l.tokens.IssueRefresh(userID, id, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	rec := &domain.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: security.HashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := l.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return &Issued{Record: rec, Token: token}, nil
}

// Rotate exchanges presented for a new access and refresh token pair. The lookup, consume,
// reissue and session repoint run as one unit: of concurrent calls with the same token
// exactly one succeeds and the rest get autherr.ErrInvalidToken. If the unit does not
// commit, presented stays valid. ip is only used for security events.
func (l *Ledger) Rotate(ctx context.Context, presented, ip string) (*Rotation, error) {
	claims, err := l.tokens.ValidateRefresh(presented)
	if err != nil {
		l.record(ctx, telemetrydomain.EventTokenValidationFailure,
			telemetrydomain.Subject{IP: ip}, "invalid_refresh_token")
		return nil, autherr.ErrInvalidToken
	}
	subject := telemetrydomain.Subject{UserID: claims.Subject, IP: ip}

	var (
		out     *Rotation
		outcome error
		reason  string
	)
	reject := func(err error, why string) {
		outcome, reason = err, why
	}
	now := l.clock.Now().UTC()
	err = l.tx.RunInTx(ctx, func(ctx context.Context) error {
		outcome, reason, out = nil, "", nil
		rec, err := l.repo.GetByHashForUpdate(ctx, security.HashToken(presented))
		if err != nil {
			return fmt.Errorf("rotate: lookup: %w", err)
		}
		if rec == nil || rec.ID != claims.ID || rec.UserID != claims.Subject {
			reject(autherr.ErrInvalidToken, "unknown_refresh_token")
			return nil
		}
		if rec.IsRevoked {
			if rec.Consumed() {
				reject(autherr.ErrInvalidToken, "refresh_token_reuse")
			} else {
				reject(autherr.ErrInvalidToken, "revoked_refresh_token")
			}
			return nil
		}
		if rec.ExpiredAt(now) {
			if err := l.repo.Revoke(ctx, rec.ID); err != nil {
				return fmt.Errorf("rotate: revoke expired: %w", err)
			}
			reject(autherr.ErrExpired, "expired_refresh_token")
			return nil
		}

		u, err := l.users.FindByID(ctx, rec.UserID)
		if err != nil {
			return fmt.Errorf("rotate: find user: %w", err)
		}
		if why, denied := userDenied(u); denied != nil {
			if err := l.repo.Revoke(ctx, rec.ID); err != nil {
				return fmt.Errorf("rotate: revoke for %s user: %w", why, err)
			}
			reject(denied, why)
			return nil
		}

		// Extended sessions keep their window across rotations.
		expiresAt := now.Add(l.tokens.RefreshTTL())
		if rec.ExpiresAt.After(expiresAt) {
			expiresAt = rec.ExpiresAt
		}
		next, err := l.issue(ctx, u.ID, expiresAt, now)
		if err != nil {
			return err
		}
		ok, err := l.repo.MarkUsed(ctx, rec.ID, now, next.Record.ID)
		if err != nil {
			return fmt.Errorf("rotate: consume: %w", err)
		}
		if !ok {
			return autherr.ErrInvalidToken
		}
		sessionID := ""
		if l.sessions != nil {
			if sessionID, err = l.sessions.RepointRefreshToken(ctx, rec.ID, next.Record.ID); err != nil {
				return fmt.Errorf("rotate: repoint session: %w", err)
			}
		}
		access, accessExp, err := l.tokens.IssueAccess(security.Subject{
			UserID:    u.ID,
			Email:     u.Email,
			Username:  u.Username,
			Role:      string(u.Role),
			SessionID: sessionID,
		}, now)
		if err != nil {
			return fmt.Errorf("rotate: issue access token: %w", err)
		}
		out = &Rotation{
			UserID:           u.ID,
			SessionID:        sessionID,
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     next.Token,
			RefreshExpiresAt: expiresAt,
			RecordID:         next.Record.ID,
		}
		return nil
	})
	if err != nil {
		if autherr.IsAuth(err) {
			l.record(ctx, telemetrydomain.EventTokenValidationFailure, subject, "concurrent_rotation")
		}
		return nil, err
	}
	if outcome != nil {
		eventType := telemetrydomain.EventTokenValidationFailure
		if reason == "refresh_token_reuse" {
			eventType = telemetrydomain.EventSuspiciousLogin
		}
		l.record(ctx, eventType, subject, reason)
		return nil, outcome
	}
	return out, nil
}

func userDenied(u *userdomain.User) (string, error) {
	switch {
	case u == nil:
		return "user_not_found", autherr.ErrInvalidToken
	case u.IsBanned:
		return "user_banned", autherr.ErrBanned
	case !u.IsActive:
		return "user_inactive", autherr.ErrInactive
	}
	return "", nil
}

// Revoke revokes one entry. Idempotent.
func (l *Ledger) Revoke(ctx context.Context, recordID string) error {
	if recordID == "" {
		return nil
	}
	if err := l.repo.Revoke(ctx, recordID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every non-revoked entry of userID and returns how many changed.
func (l *Ledger) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := l.repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	return n, nil
}

// ExtendExpiry pushes the entry's expires_at out to at. Returns false for a revoked or
// missing entry.
func (l *Ledger) ExtendExpiry(ctx context.Context, recordID string, at time.Time) (bool, error) {
	if recordID == "" {
		return false, nil
	}
	ok, err := l.repo.ExtendExpiry(ctx, recordID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("extend refresh token: %w", err)
	}
	return ok, nil
}

// ExpiresAt returns the entry's current expiry, or the zero time when it does not exist.
func (l *Ledger) ExpiresAt(ctx context.Context, recordID string) (time.Time, error) {
	rec, err := l.repo.GetByID(ctx, recordID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get refresh token: %w", err)
	}
	if rec == nil {
		return time.Time{}, nil
	}
	return rec.ExpiresAt, nil
}

func (l *Ledger) record(ctx context.Context, t telemetrydomain.EventType, subject telemetrydomain.Subject, reason string) {
	if l.events == nil {
		return
	}
	l.events.Record(ctx, t, subject, map[string]string{"reason": reason, "token_type": "refresh"})
}
