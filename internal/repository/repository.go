package repository

import (
	"context"
	"time"

	"consolerent-backend/internal/domain"
)

// Lookups return domain.ErrNotFound when the record does not exist.

type ResourceRepository interface {
	Create(ctx context.Context, resource *domain.Resource) error
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context) ([]domain.Resource, error)
	UpdateStatus(ctx context.Context, id string, status domain.ResourceStatus) error
}

type BookingRepository interface {
	// CreateIfAvailable inserts the booking only if no pending or confirmed
	// booking on the same resource overlaps its window. The check and the
	// insert are atomic per resource; a conflict returns *domain.SlotUnavailableError.
	CreateIfAvailable(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// Transition persists the booking's new status and lifecycle fields only if
	// the stored status still equals from; otherwise domain.ErrInvalidTransition.
	Transition(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error
	ListActiveByResource(ctx context.Context, resourceID string) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	// ListOverdue returns confirmed bookings whose window ended before now.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error)
	// ListEndingBetween returns confirmed bookings with end in [from, to).
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
	// ListRecentCompletedByUser returns completed bookings newest first.
	ListRecentCompletedByUser(ctx context.Context, userID string, limit int) ([]domain.Booking, error)
	CountCompletedByUser(ctx context.Context, userID string) (int, error)
}

type SoftLockRepository interface {
	// Acquire drops any lock held by lock.UserID and installs lock, unless a
	// different user holds a live lock on the same resource (domain.ErrResourceHeld).
	Acquire(ctx context.Context, lock *domain.SoftLock, now time.Time) error
	GetByUser(ctx context.Context, userID string) (*domain.SoftLock, error)
	// GetLiveByResource returns the unexpired lock on the resource, if any.
	GetLiveByResource(ctx context.Context, resourceID string, now time.Time) (*domain.SoftLock, error)
	// DeleteByUser is idempotent.
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes locks with expiresAt < now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type PenaltyRepository interface {
	// Create fails with domain.ErrDuplicatePenalty when (booking, kind) exists.
	Create(ctx context.Context, penalty *domain.Penalty) error
	GetByID(ctx context.Context, id string) (*domain.Penalty, error)
	// Transition is a compare-and-set on status, like BookingRepository.Transition.
	Transition(ctx context.Context, penalty *domain.Penalty, from domain.PenaltyStatus) error
	ListByUser(ctx context.Context, userID string) ([]domain.Penalty, error)
	ExistsForBooking(ctx context.Context, bookingID string, kind domain.PenaltyKind) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	AddLoyaltyCredits(ctx context.Context, id string, credits int) error
}

type RatingRepository interface {
	Save(ctx context.Context, score *domain.RatingScore) error
	Get(ctx context.Context, userID string) (*domain.RatingScore, error)
}

type DiscountRepository interface {
	Create(ctx context.Context, discount *domain.Discount) error
	// ListActive returns active discounts whose date range contains now.
	ListActive(ctx context.Context, now time.Time) ([]domain.Discount, error)
	// IncrementUsage bumps used_count, failing with domain.ErrDiscountExhausted at the cap.
	IncrementUsage(ctx context.Context, id string) error
}

type NotificationRepository interface {
	// Create fails with domain.ErrDuplicateNotification when a non-empty DedupKey was already recorded.
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, id, userID string) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Set groups the repositories a deployment wires into the services.
type Set struct {
	Resources     ResourceRepository
	Bookings      BookingRepository
	SoftLocks     SoftLockRepository
	Penalties     PenaltyRepository
	Users         UserRepository
	Ratings       RatingRepository
	Discounts     DiscountRepository
	Notifications NotificationRepository
}
