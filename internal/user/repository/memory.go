package repository

import (
	"context"
	"errors"
	"sync"

	"social-tippster/backend/internal/user/domain"
)

// ErrDuplicateEmail is returned by MemoryRepository.Create when the email is taken.
var ErrDuplicateEmail = errors.New("user: email already exists")

// MemoryRepository is an in-memory Repository used in development mode and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyUser(r.byID[id]), nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return copyUser(r.byID[id]), nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	r.byID[u.ID] = copyUser(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepository) SetStatus(ctx context.Context, id string, isActive, isBanned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.IsActive = isActive
		u.IsBanned = isBanned
	}
	return nil
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
