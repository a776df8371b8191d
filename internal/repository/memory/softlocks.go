package memory

import (
	"context"
	"sync"
	"time"

	"consolerent-backend/internal/domain"
)

// SoftLockRepository keeps at most one lock per user under a single mutex.
type SoftLockRepository struct {
	mu     sync.Mutex
	byUser map[string]domain.SoftLock
}

func NewSoftLockRepository() *SoftLockRepository {
	return &SoftLockRepository{byUser: make(map[string]domain.SoftLock)}
}

func (r *SoftLockRepository) Acquire(ctx context.Context, lock *domain.SoftLock, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner, held := range r.byUser {
		if owner != lock.UserID && held.ResourceID == lock.ResourceID && !held.IsExpired(now) {
			return domain.ErrResourceHeld
		}
	}
	r.byUser[lock.UserID] = *lock
	return nil
}

func (r *SoftLockRepository) GetByUser(ctx context.Context, userID string) (*domain.SoftLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (r *SoftLockRepository) GetLiveByResource(ctx context.Context, resourceID string, now time.Time) (*domain.SoftLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byUser {
		if l.ResourceID == resourceID && !l.IsExpired(now) {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *SoftLockRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	delete(r.byUser, userID)
	r.mu.Unlock()
	return nil
}

func (r *SoftLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for owner, l := range r.byUser {
		if l.ExpiresAt.Before(now) {
			delete(r.byUser, owner)
			removed++
		}
	}
	return removed, nil
}
