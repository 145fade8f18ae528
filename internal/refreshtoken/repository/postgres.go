package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/refreshtoken/domain"
)

const tokenColumns = `id, user_id, token_hash, expires_at, is_revoked, used_at, replaced_by_id, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh token repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists t. t.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, is_revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.IsRevoked, t.CreatedAt,
	)
	return err
}

// GetByID returns the entry for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1`, id)
	return scanToken(row)
}

// GetByHashForUpdate takes a row lock; concurrent rotations of the same token queue here
// and the loser observes is_revoked once the winner commits.
func (r *PostgresRepository) GetByHashForUpdate(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`, hash)
	return scanToken(row)
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time, replacedByID string) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET used_at = $2, is_revoked = TRUE, replaced_by_id = $3
		  WHERE id = $1 AND NOT is_revoked`,
		id, usedAt, nullString(replacedByID),
	)
	return affected(res, err)
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked = TRUE WHERE id = $1 AND NOT is_revoked`, id)
	return err
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked = TRUE WHERE user_id = $1 AND NOT is_revoked`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepository) ExtendExpiry(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET expires_at = GREATEST(expires_at, $2)
		  WHERE id = $1 AND NOT is_revoked`,
		id, at,
	)
	return affected(res, err)
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanToken(row *sql.Row) (*domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		usedAt     sql.NullTime
		replacedBy sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.IsRevoked, &usedAt, &replacedBy, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if usedAt.Valid {
		u := usedAt.Time
		t.UsedAt = &u
	}
	t.ReplacedByID = replacedBy.String
	return &t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
