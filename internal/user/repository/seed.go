package repository

import (
	"context"

	"social-tippster/backend/internal/user/domain"
)

// PasswordHasher hashes plaintext passwords for seeded accounts.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
}

// DevUser describes a development account.
type DevUser struct {
	ID       string
	Email    string
	Username string
	Password string
	Role     domain.Role
}

// DevUsers are created by cmd/seed and by the in-memory development mode, one per role.
var DevUsers = []DevUser{
	{ID: "00000000-0000-4000-8000-000000000001", Email: "user@tippster.dev", Username: "tipster", Password: "password123", Role: domain.RoleUser},
	{ID: "00000000-0000-4000-8000-000000000002", Email: "moderator@tippster.dev", Username: "moderator", Password: "password123", Role: domain.RoleModerator},
	{ID: "00000000-0000-4000-8000-000000000003", Email: "admin@tippster.dev", Username: "admin", Password: "password123", Role: domain.RoleAdmin},
}

// SeedDevUsers creates DevUsers that do not exist yet. Returns how many were created.
func SeedDevUsers(ctx context.Context, repo Repository, hasher PasswordHasher) (int, error) {
	created := 0
	for _, du := range DevUsers {
		existing, err := repo.FindByEmail(ctx, du.Email)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		hash, err := hasher.Hash([]byte(du.Password))
		if err != nil {
			return created, err
		}
		u := &domain.User{
			ID:           du.ID,
			Email:        du.Email,
			Username:     du.Username,
			PasswordHash: hash,
			Role:         du.Role,
			IsActive:     true,
		}
		if err := repo.Create(ctx, u); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
