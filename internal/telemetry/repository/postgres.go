// Package repository persists security events to the security_events table.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/telemetry/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security event repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Write inserts the event and sets e.ID. It satisfies telemetry.Sink.
func (r *PostgresRepository) Write(ctx context.Context, e *domain.SecurityEvent) error {
	details, err := detailsJSON(e.Details)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx,
		`INSERT INTO security_events (event_type, severity, user_id, identifier, session_id, ip, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		string(e.EventType), string(e.Severity),
		nullString(e.Subject.UserID), nullString(e.Subject.Identifier),
		nullString(e.Subject.SessionID), nullString(e.Subject.IP),
		details, e.OccurredAt,
	).Scan(&e.ID)
}

// ListRecent returns up to limit events, newest first. An empty eventType matches all types.
func (r *PostgresRepository) ListRecent(ctx context.Context, eventType domain.EventType, limit int) ([]*domain.SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, event_type, severity, user_id, identifier, session_id, ip, details, created_at
		   FROM security_events
		  WHERE $1 = '' OR event_type = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2`,
		string(eventType), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.SecurityEvent
	for rows.Next() {
		var (
			e                                 domain.SecurityEvent
			typ, sev                          string
			userID, identifier, sessionID, ip sql.NullString
			details                           []byte
		)
		if err := rows.Scan(&e.ID, &typ, &sev, &userID, &identifier, &sessionID, &ip, &details, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.EventType = domain.EventType(typ)
		e.Severity = domain.Severity(sev)
		e.Subject = domain.Subject{
			UserID:     userID.String,
			Identifier: identifier.String,
			SessionID:  sessionID.String,
			IP:         ip.String,
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func detailsJSON(d map[string]string) (sql.NullString, error) {
	if len(d) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
