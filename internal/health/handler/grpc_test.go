package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockPinger struct {
	mu      sync.Mutex
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *mockPinger) set(err error) {
	m.mu.Lock()
	m.pingErr = err
	m.mu.Unlock()
}

type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func statusOf(t *testing.T, hs *health.Server, svc string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
	if err != nil {
		// Not registered yet.
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.GetStatus()
}

func TestChecker_NilChecksServing(t *testing.T) {
	hs := health.NewServer()
	c := NewChecker(hs, nil, nil, nil, "tippster.auth.v1.AuthService")
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, svc := range []string{"", "tippster.auth.v1.AuthService"} {
		if got := statusOf(t, hs, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("%q status = %v, want SERVING", svc, got)
		}
	}
}

func TestChecker_Failures(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		policy error
	}{
		{"db down", errors.New("connection refused"), nil},
		{"policy broken", nil, errors.New("rego compile")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := health.NewServer()
			c := NewChecker(hs, &mockPinger{pingErr: tt.ping}, &mockPolicyChecker{healthErr: tt.policy}, nil, "svc")
			if err := c.Check(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			if got := statusOf(t, hs, "svc"); got != healthpb.HealthCheckResponse_NOT_SERVING {
				t.Errorf("status = %v, want NOT_SERVING", got)
			}
		})
	}
}

func TestChecker_RunRecovers(t *testing.T) {
	hs := health.NewServer()
	p := &mockPinger{pingErr: errors.New("down")}
	mock := clock.NewMock()
	c := NewChecker(hs, p, nil, mock, "svc")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 10*time.Second) }()

	waitFor(t, func() bool { return statusOf(t, hs, "svc") == healthpb.HealthCheckResponse_NOT_SERVING })
	p.set(nil)
	waitFor(t, func() bool {
		mock.Add(10 * time.Second)
		return statusOf(t, hs, "svc") == healthpb.HealthCheckResponse_SERVING
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestChecker_Shutdown(t *testing.T) {
	hs := health.NewServer()
	c := NewChecker(hs, nil, nil, nil, "svc")
	_ = c.Check(context.Background())
	c.Shutdown()
	if got := statusOf(t, hs, "svc"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
