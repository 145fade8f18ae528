// Package audit records login and logout analytics with device metadata. Writes are
// asynchronous and best-effort; a failing store never blocks authentication.
package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"social-tippster/backend/internal/audit/domain"
	auditrepo "social-tippster/backend/internal/audit/repository"
)

const writeTimeout = 5 * time.Second

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// Event is one audit entry before it is stamped and stored.
type Event struct {
	UserID    string
	SessionID string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]string
}

// AuditLogger writes a single audit event. Used by the session tracker and auth service.
type AuditLogger interface {
	LogEvent(ctx context.Context, e Event)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	clock       clock.Clock
	wg          sync.WaitGroup
}

// NewLogger returns a Logger that persists to repo. ipExtractor fills in the IP when the
// event carries none; it may be nil, then the IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, clk clock.Clock) *Logger {
	if clk == nil {
		clk = clock.New()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, clock: clk}
}

// LogEvent stamps e and stores it in the background. Errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, e Event) {
	if l == nil || l.repo == nil {
		return
	}
	ip := e.IP
	if ip == "" && l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    e.UserID,
		SessionID: e.SessionID,
		Action:    e.Action,
		IP:        ip,
		UserAgent: e.UserAgent,
		Metadata:  e.Metadata,
		CreatedAt: l.clock.Now().UTC(),
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := l.repo.Create(wctx, entry); err != nil {
			log.Printf("audit: failed to log event %s for user %s: %v", entry.Action, entry.UserID, err)
		}
	}()
}

// Drain waits for pending writes or until ctx is done.
func (l *Logger) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
