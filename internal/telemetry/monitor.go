// Package telemetry is the security event monitor: a fire-and-forget sink for failed
// logins, token failures, lockouts and anomalies, fanned out to Kafka, OTel logs and Postgres.
package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"social-tippster/backend/internal/telemetry/domain"
)

// writeTimeout is the max time allowed for a single sink write.
const writeTimeout = 5 * time.Second

// ShutdownDrainDuration is how long shutdown waits for in-flight writes before closing sinks.
// Must be >= writeTimeout.
const ShutdownDrainDuration = writeTimeout

// Recorder is what the auth services depend on.
type Recorder interface {
	Record(ctx context.Context, eventType domain.EventType, subject domain.Subject, details map[string]string)
}

// Monitor implements Recorder. Record never blocks on sinks and never panics into the caller.
type Monitor struct {
	sinks   []Sink
	clock   clock.Clock
	counter metric.Int64Counter
	wg      sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used to stamp events.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithMeter registers the security_events_total counter on meter.
func WithMeter(meter metric.Meter) Option {
	return func(m *Monitor) {
		c, err := meter.Int64Counter("security_events_total",
			metric.WithDescription("Security events recorded by type and severity"))
		if err != nil {
			log.Printf("security: counter registration failed: %v", err)
			return
		}
		m.counter = c
	}
}

// NewMonitor returns a Monitor writing to sinks. With no sinks, events go to LogSink.
func NewMonitor(sinks []Sink, opts ...Option) *Monitor {
	m := &Monitor{clock: clock.New()}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	if len(m.sinks) == 0 {
		m.sinks = []Sink{LogSink{}}
	}
	for _, o := range opts {
		o(m)
	}
	if m.counter == nil {
		m.counter, _ = noop.NewMeterProvider().Meter("").Int64Counter("security_events_total")
	}
	return m
}

// Record stamps an event with its severity and hands it to every sink asynchronously.
// The request context is not used for the writes, so cancellation does not drop events.
func (m *Monitor) Record(ctx context.Context, eventType domain.EventType, subject domain.Subject, details map[string]string) {
	if m == nil {
		return
	}
	event := &domain.SecurityEvent{
		EventType:  eventType,
		Severity:   domain.SeverityFor(eventType),
		Subject:    subject,
		Details:    copyDetails(details),
		OccurredAt: m.clock.Now().UTC(),
	}
	m.counter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event_type", string(event.EventType)),
		attribute.String("severity", string(event.Severity)),
	))
	for _, s := range m.sinks {
		m.wg.Add(1)
		go m.write(s, event)
	}
}

func (m *Monitor) write(s Sink, event *domain.SecurityEvent) {
	defer m.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			log.Printf("security: sink panicked for %s: %v", event.EventType, p)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.Write(ctx, event); err != nil {
		log.Printf("security: sink write failed for %s: %v", event.EventType, err)
	}
}

// Drain waits until in-flight writes finish or ctx is done.
func (m *Monitor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func copyDetails(d map[string]string) map[string]string {
	if len(d) == 0 {
		return nil
	}
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
