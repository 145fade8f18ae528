package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"social-tippster/backend/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) snapshot() []*domain.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditLog(nil), m.entries...)
}

func drain(t *testing.T, l *Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	logger := NewLogger(repo, nil, mock)

	logger.LogEvent(context.Background(), Event{
		UserID:    "user-1",
		SessionID: "sess-1",
		Action:    domain.ActionLogin,
		IP:        "192.168.1.1",
		UserAgent: "curl/8",
		Metadata:  map[string]string{"remember_me": "true"},
	})
	drain(t, logger)

	entries := repo.snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.UserID != "user-1" || entry.SessionID != "sess-1" {
		t.Errorf("ids = %q/%q", entry.UserID, entry.SessionID)
	}
	if entry.Action != domain.ActionLogin {
		t.Errorf("action = %q, want %q", entry.Action, domain.ActionLogin)
	}
	if entry.IP != "192.168.1.1" || entry.UserAgent != "curl/8" {
		t.Errorf("device = %q/%q", entry.IP, entry.UserAgent)
	}
	if entry.Metadata["remember_me"] != "true" {
		t.Errorf("metadata = %v", entry.Metadata)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if !entry.CreatedAt.Equal(mock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, mock.Now())
	}
}

func TestLogger_LogEvent_IPFallbacks(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(context.Context) string { return "10.0.0.1" }, nil)
	logger.LogEvent(context.Background(), Event{UserID: "u", Action: domain.ActionLogout})
	drain(t, logger)
	if got := repo.snapshot()[0].IP; got != "10.0.0.1" {
		t.Errorf("ip = %q, want extractor value", got)
	}

	repo2 := &mockAuditRepo{}
	logger2 := NewLogger(repo2, nil, nil)
	logger2.LogEvent(context.Background(), Event{UserID: "u", Action: domain.ActionLogout})
	drain(t, logger2)
	if got := repo2.snapshot()[0].IP; got != "unknown" {
		t.Errorf("ip = %q, want unknown", got)
	}
}

func TestLogger_LogEvent_CancelledContextStillWrites(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger.LogEvent(ctx, Event{UserID: "u", Action: domain.ActionLogin})
	drain(t, logger)
	if len(repo.snapshot()) != 1 {
		t.Error("event dropped for cancelled request context")
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	logger := NewLogger(repo, nil, nil)
	logger.LogEvent(context.Background(), Event{UserID: "user-1", Action: "action"})
	drain(t, logger)
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	logger := NewLogger(nil, nil, nil)
	logger.LogEvent(context.Background(), Event{UserID: "user-1", Action: "action"})
	drain(t, logger)

	var nilLogger *Logger
	nilLogger.LogEvent(context.Background(), Event{})
}
