package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"

	"social-tippster/backend/internal/telemetry/domain"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
	n   int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.n++
}

func TestNewEventSink_NilProvider(t *testing.T) {
	if s := NewEventSink(nil); s != nil {
		t.Errorf("NewEventSink(nil) = %v, want nil", s)
	}
}

func TestWrite_Mapping(t *testing.T) {
	cap := &recordCapture{}
	sink := NewEventSinkWithLogger(cap)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.SecurityEvent{
		EventType:  domain.EventSuspiciousLogin,
		Severity:   domain.SeverityHigh,
		Subject:    domain.Subject{UserID: "u1", SessionID: "s1", IP: "10.0.0.1"},
		Details:    map[string]string{"reason": "token_reuse"},
		OccurredAt: at,
	}
	if err := sink.Write(context.Background(), event); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if cap.n != 1 {
		t.Fatalf("emitted %d records, want 1", cap.n)
	}
	if !cap.rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v", cap.rec.Timestamp())
	}
	if cap.rec.Severity() != otellog.SeverityError || cap.rec.SeverityText() != "high" {
		t.Errorf("severity = %v %q", cap.rec.Severity(), cap.rec.SeverityText())
	}
	attrs := map[string]string{}
	cap.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"event_type":    "suspicious_login",
		"severity":      "high",
		"user_id":       "u1",
		"session_id":    "s1",
		"client_ip":     "10.0.0.1",
		"detail.reason": "token_reuse",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %s = %q, want %q", k, attrs[k], v)
		}
	}
	if _, ok := attrs["identifier"]; ok {
		t.Error("empty identifier should not be emitted")
	}
}

func TestWrite_NilEvent(t *testing.T) {
	cap := &recordCapture{}
	if err := NewEventSinkWithLogger(cap).Write(context.Background(), nil); err != nil {
		t.Errorf("Write(nil) = %v", err)
	}
	if cap.n != 0 {
		t.Error("nil event should not emit")
	}
}

func TestOtelSeverity(t *testing.T) {
	cases := map[domain.Severity]otellog.Severity{
		domain.SeverityLow:      otellog.SeverityInfo,
		domain.SeverityMedium:   otellog.SeverityWarn,
		domain.SeverityHigh:     otellog.SeverityError,
		domain.SeverityCritical: otellog.SeverityFatal,
		"bogus":                 otellog.SeverityWarn,
	}
	for in, want := range cases {
		if got := otelSeverity(in); got != want {
			t.Errorf("otelSeverity(%q) = %v, want %v", in, got, want)
		}
	}
}
