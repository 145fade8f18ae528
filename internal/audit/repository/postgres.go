package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"social-tippster/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. a.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	var meta sql.NullString
	if len(a.Metadata) > 0 {
		b, err := json.Marshal(a.Metadata)
		if err != nil {
			return err
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, session_id, action, ip, user_agent, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, nullString(a.UserID), nullString(a.SessionID), a.Action, a.IP, a.UserAgent, meta, a.CreatedAt,
	)
	return err
}

// ListByUser returns the newest audit logs for userID, at most limit.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, action, ip, user_agent, metadata, created_at
		   FROM audit_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a        domain.AuditLog
			uid, sid sql.NullString
			meta     []byte
		)
		if err := rows.Scan(&a.ID, &uid, &sid, &a.Action, &a.IP, &a.UserAgent, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID, a.SessionID = uid.String, sid.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
