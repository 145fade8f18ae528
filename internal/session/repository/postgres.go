package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/session/domain"
)

const sessionColumns = `s.id, s.user_id, s.refresh_token_id, s.session_start, s.session_end, s.is_active,
	s.last_activity, s.activity_count, s.extended_at, s.extension_count, s.expiry_reason,
	s.remember_me, s.ip_address, s.user_agent, s.device_fingerprint`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.UserSession) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, refresh_token_id, session_start, is_active, last_activity,
		    activity_count, extension_count, remember_me, ip_address, user_agent, device_fingerprint)
		 VALUES ($1, $2, $3, $4, TRUE, $5, $6, 0, $7, $8, $9, $10)`,
		s.ID, s.UserID, nullString(s.RefreshTokenID), s.SessionStart, s.LastActivity, s.ActivityCount,
		s.RememberMe, s.IPAddress, s.UserAgent, s.DeviceFingerprint,
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.UserSession, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM user_sessions s WHERE s.id = $1`, id)
	return scanSession(row)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.UserSession, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions s WHERE s.id = $1 FOR UPDATE`, id)
	return scanSession(row)
}

func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.UserSession, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions s
		  WHERE s.user_id = $1 AND s.is_active ORDER BY s.last_activity DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (r *PostgresRepository) ListExpired(ctx context.Context, now, startedBefore time.Time, limit int) ([]*domain.UserSession, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions s
		   LEFT JOIN refresh_tokens t ON t.id = s.refresh_token_id
		  WHERE s.is_active AND (s.session_start < $2 OR t.expires_at < $1)
		  ORDER BY s.session_start
		  LIMIT $3`,
		now, startedBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (r *PostgresRepository) RecordActivity(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE user_sessions SET last_activity = $2, activity_count = activity_count + 1
		  WHERE id = $1 AND is_active`, id, at)
	return affected(res, err)
}

func (r *PostgresRepository) MarkExtended(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE user_sessions SET extended_at = $2, extension_count = extension_count + 1
		  WHERE id = $1 AND is_active`, id, at)
	return affected(res, err)
}

func (r *PostgresRepository) Terminate(ctx context.Context, id string, reason domain.ExpiryReason, at time.Time) (string, bool, error) {
	var tokenID sql.NullString
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`UPDATE user_sessions SET is_active = FALSE, session_end = $2, expiry_reason = $3
		  WHERE id = $1 AND is_active
		  RETURNING refresh_token_id`,
		id, at, string(reason),
	).Scan(&tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return tokenID.String, true, nil
}

func (r *PostgresRepository) TerminateAllForUser(ctx context.Context, userID string, reason domain.ExpiryReason, at time.Time) (int, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE user_sessions SET is_active = FALSE, session_end = $2, expiry_reason = $3
		  WHERE user_id = $1 AND is_active`,
		userID, at, string(reason),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepository) RepointRefreshToken(ctx context.Context, oldTokenID, newTokenID string) (string, error) {
	var id string
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`UPDATE user_sessions SET refresh_token_id = $2
		  WHERE refresh_token_id = $1 AND is_active
		  RETURNING id`,
		oldTokenID, newTokenID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*domain.UserSession, error) {
	var (
		s          domain.UserSession
		tokenID    sql.NullString
		end        sql.NullTime
		extendedAt sql.NullTime
		reason     sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.UserID, &tokenID, &s.SessionStart, &end, &s.IsActive,
		&s.LastActivity, &s.ActivityCount, &extendedAt, &s.ExtensionCount, &reason,
		&s.RememberMe, &s.IPAddress, &s.UserAgent, &s.DeviceFingerprint); err != nil {
		return nil, err
	}
	s.RefreshTokenID = tokenID.String
	if end.Valid {
		t := end.Time
		s.SessionEnd = &t
	}
	if extendedAt.Valid {
		t := extendedAt.Time
		s.ExtendedAt = &t
	}
	s.ExpiryReason = domain.ExpiryReason(reason.String)
	return &s, nil
}

func scanSession(row *sql.Row) (*domain.UserSession, error) {
	s, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func scanSessions(rows *sql.Rows) ([]*domain.UserSession, error) {
	defer rows.Close()
	var out []*domain.UserSession
	for rows.Next() {
		s, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
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

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
