package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/user/domain"
)

const userColumns = `id, email, username, password_hash, role, is_active, is_banned, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// FindByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail returns the user with the given (normalized) email, or nil if not found.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role), u.IsActive, u.IsBanned, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// SetStatus updates is_active and is_banned for id. A missing user is not an error.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, isActive, isBanned bool) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET is_active = $2, is_banned = $3, updated_at = now() WHERE id = $1`,
		id, isActive, isBanned,
	)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &u.IsActive, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
