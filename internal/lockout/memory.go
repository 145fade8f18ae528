package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local Counter. Entries idle for longer than the retention
// are dropped by Prune.
type MemoryCounter struct {
	mu        sync.Mutex
	m         map[string]State
	retention time.Duration
}

// NewMemoryCounter returns a MemoryCounter that keeps entries for retention after their last attempt.
func NewMemoryCounter(retention time.Duration) *MemoryCounter {
	return &MemoryCounter{
		m:         make(map[string]State),
		retention: retention,
	}
}

func (c *MemoryCounter) Get(ctx context.Context, key string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key], nil
}

func (c *MemoryCounter) Reserve(ctx context.Context, key string, at time.Time, maxAttempts int, window time.Duration) (State, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := reserve(c.m[key], at, maxAttempts, window)
	if ok {
		c.m[key] = s
	}
	return s, ok, nil
}

func (c *MemoryCounter) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

// Prune removes entries whose last attempt is older than the retention. Returns how many were removed.
func (c *MemoryCounter) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, s := range c.m {
		if !now.Before(s.LastAttemptAt.Add(c.retention)) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked identifiers.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
