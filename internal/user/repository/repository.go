package repository

import (
	"context"

	"social-tippster/backend/internal/user/domain"
)

// Repository defines persistence for users. Lookups return (nil, nil) when no row matches.
type Repository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// SetStatus updates is_active and is_banned. Used by the admin CLI and seed.
	SetStatus(ctx context.Context, id string, isActive, isBanned bool) error
}
