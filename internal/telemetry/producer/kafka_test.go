package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"social-tippster/backend/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_EmptyConfig(t *testing.T) {
	if p := NewKafkaProducer(nil, "topic"); p != nil {
		t.Error("no brokers should return nil")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("empty topic should return nil")
	}
	var p *KafkaProducer
	if err := p.Write(context.Background(), &domain.SecurityEvent{}); err != nil {
		t.Errorf("nil producer Write = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close = %v", err)
	}
}

func TestKafkaProducer_Write(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaProducerWithWriter(w, "security")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.SecurityEvent{
		EventType:  domain.EventBruteForceAttempt,
		Severity:   domain.SeverityCritical,
		Subject:    domain.Subject{Identifier: "a@example.com", IP: "10.0.0.1"},
		OccurredAt: at,
	}
	if err := p.Write(context.Background(), event); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "brute_force_attempt" || !msg.Time.Equal(at) {
		t.Errorf("key = %q time = %v", msg.Key, msg.Time)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["eventType"] != "brute_force_attempt" || decoded["severity"] != "critical" {
		t.Errorf("payload = %v", decoded)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close = %v closed=%v", err, w.closed)
	}
}

func TestKafkaProducer_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaProducerWithWriter(w, "security")
	if err := p.Write(context.Background(), &domain.SecurityEvent{EventType: domain.EventFailedLogin}); err == nil {
		t.Fatal("Write should return the writer error")
	}
}
