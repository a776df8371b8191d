package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"consolerent-backend/internal/domain"
)

// Availability is the answer to "can this window be booked right now".
type Availability struct {
	ResourceID            string        `json:"resource_id"`
	Window                domain.Window `json:"window"`
	Available             bool          `json:"available"`
	ConflictingBookingIDs []string      `json:"conflicting_booking_ids"`
}

type CreateBookingRequest struct {
	UserID     string
	ResourceID string
	Window     domain.Window
	Price      decimal.Decimal
	DiscountID *string
}

type CreatePenaltyRequest struct {
	BookingID string
	Kind      domain.PenaltyKind
	Amount    decimal.Decimal
	Reason    string
}

// SweepReport summarises one pass of a periodic job.
type SweepReport struct {
	Job      string        `json:"job"`
	Examined int           `json:"examined"`
	Applied  int           `json:"applied"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type ResourceService interface {
	CreateResource(ctx context.Context, res *domain.Resource) error
	// GetResource and ListResources re-derive the display status before returning.
	GetResource(ctx context.Context, id string) (*domain.Resource, error)
	ListResources(ctx context.Context) ([]domain.Resource, error)
	// SetMaintenance takes a resource out of service, or returns it to the derived status.
	SetMaintenance(ctx context.Context, id string, on bool) (*domain.Resource, error)
	// RefreshStatus recomputes the cached display status from active bookings.
	RefreshStatus(ctx context.Context, resourceID string) (domain.ResourceStatus, error)
	// RefreshStatuses re-derives every resource, catching bookings whose start has passed.
	RefreshStatuses(ctx context.Context) (*SweepReport, error)
}

type AvailabilityService interface {
	// HasConflict scans pending and confirmed bookings of the resource,
	// ignoring excludeBookingID when set.
	HasConflict(ctx context.Context, resourceID string, w domain.Window, excludeBookingID string) (bool, []domain.Booking, error)
	CheckAvailability(ctx context.Context, resourceID string, w domain.Window) (*Availability, error)
}

type SoftLockService interface {
	Acquire(ctx context.Context, userID, resourceID string) (*domain.SoftLock, error)
	IsHeldByOther(ctx context.Context, resourceID, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*domain.SoftLock, error)
	SweepExpired(ctx context.Context) (*SweepReport, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error)
	Confirm(ctx context.Context, bookingID string) (*domain.Booking, error)
	Complete(ctx context.Context, bookingID string, outcome domain.Outcome) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, reason string) (*domain.Booking, error)
	Get(ctx context.Context, bookingID string) (*domain.Booking, error)
	// ListByResource returns active bookings, restricted to those overlapping w when given.
	ListByResource(ctx context.Context, resourceID string, w *domain.Window) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	SendReminders(ctx context.Context) (*SweepReport, error)
}

type PenaltyService interface {
	CreatePenalty(ctx context.Context, req CreatePenaltyRequest) (*domain.Penalty, error)
	Approve(ctx context.Context, penaltyID string) (*domain.Penalty, error)
	Waive(ctx context.Context, penaltyID, reason string) (*domain.Penalty, error)
	MarkPaid(ctx context.Context, penaltyID string) (*domain.Penalty, error)
	Dispute(ctx context.Context, penaltyID, userID, reason string) (*domain.Penalty, error)
	Get(ctx context.Context, penaltyID string) (*domain.Penalty, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Penalty, error)
	AssessOverdue(ctx context.Context) (*SweepReport, error)
}

type RatingService interface {
	// Recompute derives the score from history and saves a new snapshot.
	Recompute(ctx context.Context, userID string) (*domain.RatingScore, error)
	// GetUserRating returns the latest snapshot, computing one if none exists.
	GetUserRating(ctx context.Context, userID string) (*domain.RatingScore, error)
	GrantLoyaltyCredit(ctx context.Context, userID string, credits int) (*domain.RatingScore, error)
}

type DiscountResolver interface {
	Resolve(ctx context.Context, userID, resourceID string, w domain.Window, basePrice decimal.Decimal) (*domain.Quote, error)
	// Quote prices the window from the resource's rates, then resolves discounts.
	Quote(ctx context.Context, userID, resourceID string, w domain.Window) (*domain.Quote, error)
	// Redeem counts one use of the quote's catalog discount, if any.
	Redeem(ctx context.Context, quote *domain.Quote) error
	CreateDiscount(ctx context.Context, d *domain.Discount) error
}

type NotificationService interface {
	// Notify records the intent and hands it to the dispatcher. A dedup key
	// that was already recorded yields domain.ErrDuplicateNotification.
	Notify(ctx context.Context, note *domain.Notification) error
	GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	Cleanup(ctx context.Context) (*SweepReport, error)
}
