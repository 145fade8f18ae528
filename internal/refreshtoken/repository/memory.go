package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"social-tippster/backend/internal/refreshtoken/domain"
)

// ErrDuplicateToken is returned by MemoryRepository.Create for a reused id or hash.
var ErrDuplicateToken = errors.New("refreshtoken: duplicate id or hash")

// MemoryRepository is an in-memory Repository. Each method is atomic on its own; pair it
// with db.SerialTxManager so multi-step rotations are serialized.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*domain.RefreshToken
	byHash map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*domain.RefreshToken),
		byHash: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return ErrDuplicateToken
	}
	if _, ok := r.byHash[t.TokenHash]; ok {
		return ErrDuplicateToken
	}
	r.byID[t.ID] = copyToken(t)
	r.byHash[t.TokenHash] = t.ID
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyToken(r.byID[id]), nil
}

func (r *MemoryRepository) GetByHashForUpdate(_ context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[hash]
	if !ok {
		return nil, nil
	}
	return copyToken(r.byID[id]), nil
}

func (r *MemoryRepository) MarkUsed(_ context.Context, id string, usedAt time.Time, replacedByID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok || t.IsRevoked {
		return false, nil
	}
	u := usedAt
	t.UsedAt = &u
	t.IsRevoked = true
	t.ReplacedByID = replacedByID
	return true, nil
}

func (r *MemoryRepository) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		t.IsRevoked = true
	}
	return nil
}

func (r *MemoryRepository) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.byID {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ExtendExpiry(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok || t.IsRevoked {
		return false, nil
	}
	if at.After(t.ExpiresAt) {
		t.ExpiresAt = at
	}
	return true, nil
}

func copyToken(t *domain.RefreshToken) *domain.RefreshToken {
	if t == nil {
		return nil
	}
	c := *t
	if t.UsedAt != nil {
		u := *t.UsedAt
		c.UsedAt = &u
	}
	return &c
}

// ExpiresAt returns the expiry of id, or the zero time when it does not exist. It lets the
// in-memory session repository find sessions whose token has expired.
func (r *MemoryRepository) ExpiresAt(_ context.Context, id string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		return t.ExpiresAt, nil
	}
	return time.Time{}, nil
}
