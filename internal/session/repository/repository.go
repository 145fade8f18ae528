package repository

import (
	"context"
	"time"

	"social-tippster/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Methods run inside the transaction carried
// by ctx when there is one. Every mutation is conditional on is_active, so terminated
// sessions never change again.
type Repository interface {
	Create(ctx context.Context, s *domain.UserSession) error
	GetByID(ctx context.Context, id string) (*domain.UserSession, error)
	// GetByIDForUpdate is GetByID holding a row lock until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.UserSession, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.UserSession, error)
	// ListExpired returns active sessions whose linked token expired before now or that
	// started before startedBefore, oldest first, at most limit.
	ListExpired(ctx context.Context, now, startedBefore time.Time, limit int) ([]*domain.UserSession, error)
	RecordActivity(ctx context.Context, id string, at time.Time) (bool, error)
	MarkExtended(ctx context.Context, id string, at time.Time) (bool, error)
	// Terminate ends an active session and returns its refresh token id. ok is false when
	// the session was already inactive or does not exist.
	Terminate(ctx context.Context, id string, reason domain.ExpiryReason, at time.Time) (refreshTokenID string, ok bool, err error)
	// TerminateAllForUser ends every active session of userID and returns how many ended.
	TerminateAllForUser(ctx context.Context, userID string, reason domain.ExpiryReason, at time.Time) (int, error)
	// RepointRefreshToken moves the active session on oldTokenID to newTokenID and returns
	// its id, or "" when no active session holds oldTokenID.
	RepointRefreshToken(ctx context.Context, oldTokenID, newTokenID string) (string, error)
}

// TokenExpiries reports ledger entry expiry; MemoryRepository uses it in ListExpired.
type TokenExpiries interface {
	ExpiresAt(ctx context.Context, tokenID string) (time.Time, error)
}
