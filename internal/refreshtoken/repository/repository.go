package repository

import (
	"context"
	"time"

	"social-tippster/backend/internal/refreshtoken/domain"
)

// Repository defines persistence for the refresh token ledger. Methods run inside the
// transaction carried by ctx when there is one.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	// GetByHashForUpdate returns the entry for hash and locks it until the surrounding
	// transaction ends, or nil if not found.
	GetByHashForUpdate(ctx context.Context, hash string) (*domain.RefreshToken, error)
	// MarkUsed consumes a non-revoked entry: sets used_at, is_revoked and replaced_by_id in
	// one write. Returns false when the entry was already revoked or does not exist.
	MarkUsed(ctx context.Context, id string, usedAt time.Time, replacedByID string) (bool, error)
	// Revoke sets is_revoked on id. Revoking a revoked or missing entry is not an error.
	Revoke(ctx context.Context, id string) error
	// RevokeAllForUser revokes every non-revoked entry of userID and returns how many changed.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	// ExtendExpiry moves expires_at of a non-revoked entry forward to at; it never shortens it.
	// Returns false when the entry is revoked or missing.
	ExtendExpiry(ctx context.Context, id string, at time.Time) (bool, error)
}
