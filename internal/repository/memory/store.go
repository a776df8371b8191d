// Package memory is an in-process store for single-node deployments and tests.
// Every returned record is a copy; callers never alias stored state.
package memory

import (
	"sync"

	"consolerent-backend/internal/repository"
)

type Store struct {
	*ResourceRepository
	*BookingRepository
	*SoftLockRepository
	*PenaltyRepository
	*UserRepository
	*RatingRepository
	*DiscountRepository
	*NotificationRepository
}

func NewStore() *Store {
	return &Store{
		ResourceRepository:     NewResourceRepository(),
		BookingRepository:      NewBookingRepository(),
		SoftLockRepository:     NewSoftLockRepository(),
		PenaltyRepository:      NewPenaltyRepository(),
		UserRepository:         NewUserRepository(),
		RatingRepository:       NewRatingRepository(),
		DiscountRepository:     NewDiscountRepository(),
		NotificationRepository: NewNotificationRepository(),
	}
}

// Set exposes the store through the repository interfaces.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Resources:     s.ResourceRepository,
		Bookings:      s.BookingRepository,
		SoftLocks:     s.SoftLockRepository,
		Penalties:     s.PenaltyRepository,
		Users:         s.UserRepository,
		Ratings:       s.RatingRepository,
		Discounts:     s.DiscountRepository,
		Notifications: s.NotificationRepository,
	}
}

// keyedMutex hands out one mutex per key. Keys are resource IDs, so the map
// never grows past the resource catalog and entries are not reclaimed.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
