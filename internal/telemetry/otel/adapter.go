package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"social-tippster/backend/internal/telemetry"
	"social-tippster/backend/internal/telemetry/domain"
)

// RecordEmitter is the subset of otellog.Logger used by the sink.
type RecordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventSink returns a telemetry.Sink that sends events as OTel log records via provider.
// If provider is nil, returns nil so the Monitor skips it.
func NewEventSink(provider *sdklog.LoggerProvider) telemetry.Sink {
	if provider == nil {
		return nil
	}
	return &logSink{logger: provider.Logger("tippster.security")}
}

// NewEventSinkWithLogger returns a sink writing to logger. Used by tests.
func NewEventSinkWithLogger(logger RecordEmitter) telemetry.Sink {
	return &logSink{logger: logger}
}

type logSink struct {
	logger RecordEmitter
}

// Write converts the security event to an OTel log record and emits it.
func (s *logSink) Write(ctx context.Context, event *domain.SecurityEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetTimestamp(event.OccurredAt)
	rec.SetEventName(string(event.EventType))
	rec.SetSeverity(otelSeverity(event.Severity))
	rec.SetSeverityText(string(event.Severity))
	rec.SetBody(otellog.StringValue("security event " + string(event.EventType)))
	rec.AddAttributes(
		otellog.String("event_type", string(event.EventType)),
		otellog.String("severity", string(event.Severity)),
	)
	if event.Subject.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.Subject.UserID))
	}
	if event.Subject.Identifier != "" {
		rec.AddAttributes(otellog.String("identifier", event.Subject.Identifier))
	}
	if event.Subject.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.Subject.SessionID))
	}
	if event.Subject.IP != "" {
		rec.AddAttributes(otellog.String("client_ip", event.Subject.IP))
	}
	for k, v := range event.Details {
		rec.AddAttributes(otellog.String("detail."+k, v))
	}
	s.logger.Emit(ctx, rec)
	return nil
}

func otelSeverity(s domain.Severity) otellog.Severity {
	switch s {
	case domain.SeverityLow:
		return otellog.SeverityInfo
	case domain.SeverityMedium:
		return otellog.SeverityWarn
	case domain.SeverityHigh:
		return otellog.SeverityError
	case domain.SeverityCritical:
		return otellog.SeverityFatal
	}
	return otellog.SeverityWarn
}
