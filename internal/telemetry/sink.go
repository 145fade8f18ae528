package telemetry

import (
	"context"
	"log"

	"social-tippster/backend/internal/telemetry/domain"
)

// Sink receives security events. Best-effort; the Monitor logs and drops sink errors.
type Sink interface {
	Write(ctx context.Context, event *domain.SecurityEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event *domain.SecurityEvent) error

func (f SinkFunc) Write(ctx context.Context, event *domain.SecurityEvent) error { return f(ctx, event) }

// LogSink writes events to the standard logger. Used when no external sink is configured.
type LogSink struct{}

func (LogSink) Write(_ context.Context, e *domain.SecurityEvent) error {
	log.Printf("security: event=%s severity=%s user=%q identifier=%q session=%q ip=%q details=%v",
		e.EventType, e.Severity, e.Subject.UserID, e.Subject.Identifier, e.Subject.SessionID, e.Subject.IP, e.Details)
	return nil
}
