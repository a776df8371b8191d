package service

import (
	"context"
	"errors"
	"time"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/repository"
)

const DefaultSoftLockTTL = 30 * time.Minute

type softLockService struct {
	lockRepo     repository.SoftLockRepository
	resourceRepo repository.ResourceRepository
	clock        clock.Clock
	metrics      *metrics.Metrics
	ttl          time.Duration
}

func NewSoftLockService(
	lockRepo repository.SoftLockRepository,
	resourceRepo repository.ResourceRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	ttl time.Duration,
) SoftLockService {
	if ttl <= 0 {
		ttl = DefaultSoftLockTTL
	}
	return &softLockService{
		lockRepo:     lockRepo,
		resourceRepo: resourceRepo,
		clock:        clk,
		metrics:      m,
		ttl:          ttl,
	}
}

// Acquire replaces whatever lock the user held. It does not look at bookings;
// a lock on a booked window simply fails later at CreateBooking.
func (s *softLockService) Acquire(ctx context.Context, userID, resourceID string) (*domain.SoftLock, error) {
	if _, err := s.resourceRepo.GetByID(ctx, resourceID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	lock := &domain.SoftLock{
		UserID:     userID,
		ResourceID: resourceID,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.lockRepo.Acquire(ctx, lock, now); err != nil {
		if errors.Is(err, domain.ErrResourceHeld) {
			s.metrics.RecordSoftLockRefused()
			logger.Info("Soft lock refused", "userID", userID, "resourceID", resourceID)
		}
		return nil, err
	}
	s.metrics.RecordSoftLockAcquired()
	logger.Debug("Soft lock acquired", "userID", userID, "resourceID", resourceID, "expiresAt", lock.ExpiresAt)
	return lock, nil
}

func (s *softLockService) IsHeldByOther(ctx context.Context, resourceID, userID string) (bool, error) {
	lock, err := s.lockRepo.GetLiveByResource(ctx, resourceID, s.clock.Now())
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lock.UserID != userID, nil
}

func (s *softLockService) Release(ctx context.Context, userID string) error {
	return s.lockRepo.DeleteByUser(ctx, userID)
}

// Get hides locks that have expired but not been swept yet.
func (s *softLockService) Get(ctx context.Context, userID string) (*domain.SoftLock, error) {
	lock, err := s.lockRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lock.IsExpired(s.clock.Now()) {
		return nil, domain.ErrNotFound
	}
	return lock, nil
}

func (s *softLockService) SweepExpired(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{Job: "expiry-sweep"}
	removed, err := s.lockRepo.DeleteExpired(ctx, s.clock.Now())
	report.Applied = removed
	if err != nil {
		return report, err
	}
	s.metrics.RecordSoftLocksExpired(removed)
	if removed > 0 {
		logger.Info("Expired soft locks removed", "count", removed)
	}
	return report, nil
}
