package service

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
)

// Sweeper runs Tracker.SweepExpired on a fixed interval.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
	clock    clock.Clock
	// swept receives each run's count; tests use it to synchronise with the mock clock.
	swept chan<- int
}

// NewSweeper returns a Sweeper. A nil clock uses the wall clock.
func NewSweeper(tracker *Tracker, interval time.Duration, clk clock.Clock) *Sweeper {
	if clk == nil {
		clk = clock.New()
	}
	return &Sweeper{tracker: tracker, interval: interval, clock: clk}
}

// Run sweeps once per interval until ctx is done. It returns nil on cancellation; a failed
// sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.tracker.SweepExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("session: sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("session: swept %d expired sessions", n)
			}
			if s.swept != nil {
				select {
				case s.swept <- n:
				default:
				}
			}
		}
	}
}
