package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"social-tippster/backend/internal/session/domain"
)

// ErrDuplicateSession is returned by MemoryRepository.Create for a reused id.
var ErrDuplicateSession = errors.New("session: duplicate id")

// MemoryRepository is an in-memory Repository for development mode and tests.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.UserSession
	tokens   TokenExpiries
}

// NewMemoryRepository returns an empty MemoryRepository. tokens may be nil; then
// ListExpired only applies the start bound.
func NewMemoryRepository(tokens TokenExpiries) *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.UserSession), tokens: tokens}
}

func (r *MemoryRepository) Create(_ context.Context, s *domain.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return ErrDuplicateSession
	}
	c := copySession(s)
	c.IsActive, c.SessionEnd, c.ExpiryReason = true, nil, ""
	r.sessions[s.ID] = c
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySession(r.sessions[id]), nil
}

func (r *MemoryRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.UserSession, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) ListActiveByUser(_ context.Context, userID string) ([]*domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.UserSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (r *MemoryRepository) ListExpired(ctx context.Context, now, startedBefore time.Time, limit int) ([]*domain.UserSession, error) {
	r.mu.Lock()
	var active []*domain.UserSession
	for _, s := range r.sessions {
		if s.IsActive {
			active = append(active, copySession(s))
		}
	}
	r.mu.Unlock()

	// Token lookups happen without the lock held.
	var out []*domain.UserSession
	for _, s := range active {
		expired := s.SessionStart.Before(startedBefore)
		if !expired && r.tokens != nil && s.RefreshTokenID != "" {
			exp, err := r.tokens.ExpiresAt(ctx, s.RefreshTokenID)
			if err != nil {
				return nil, err
			}
			expired = !exp.IsZero() && exp.Before(now)
		}
		if expired {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionStart.Before(out[j].SessionStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) RecordActivity(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.LastActivity = at
	s.ActivityCount++
	return true, nil
}

func (r *MemoryRepository) MarkExtended(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	t := at
	s.ExtendedAt = &t
	s.ExtensionCount++
	return true, nil
}

func (r *MemoryRepository) Terminate(_ context.Context, id string, reason domain.ExpiryReason, at time.Time) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return "", false, nil
	}
	end(s, reason, at)
	return s.RefreshTokenID, true, nil
}

func (r *MemoryRepository) TerminateAllForUser(_ context.Context, userID string, reason domain.ExpiryReason, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			end(s, reason, at)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) RepointRefreshToken(_ context.Context, oldTokenID, newTokenID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.IsActive && s.RefreshTokenID == oldTokenID {
			s.RefreshTokenID = newTokenID
			return s.ID, nil
		}
	}
	return "", nil
}

func end(s *domain.UserSession, reason domain.ExpiryReason, at time.Time) {
	t := at
	s.IsActive = false
	s.SessionEnd = &t
	s.ExpiryReason = reason
}

func copySession(s *domain.UserSession) *domain.UserSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.SessionEnd != nil {
		t := *s.SessionEnd
		c.SessionEnd = &t
	}
	if s.ExtendedAt != nil {
		t := *s.ExtendedAt
		c.ExtendedAt = &t
	}
	return &c
}
