package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/config"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/notify"
	"consolerent-backend/internal/repository"
)

// Options are the policy knobs of the engine.
type Options struct {
	SoftLockTTL            time.Duration
	PenaltyDailyRate       decimal.Decimal
	RatingWindow           int
	AutoConfirm            bool
	PremiumDiscountPercent decimal.Decimal
	ReminderLead           time.Duration
	NotificationRetention  time.Duration
}

func DefaultOptions() Options {
	return Options{
		SoftLockTTL:            DefaultSoftLockTTL,
		PenaltyDailyRate:       DefaultPenaltyDailyRate,
		RatingWindow:           DefaultRatingWindow,
		PremiumDiscountPercent: DefaultPremiumDiscountPercent,
		ReminderLead:           DefaultReminderLead,
		NotificationRetention:  30 * 24 * time.Hour,
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SoftLockTTL:            cfg.SoftLockTTLDuration(),
		PenaltyDailyRate:       decimal.NewFromFloat(cfg.Engine.PenaltyDailyRate),
		RatingWindow:           cfg.Engine.RatingWindow,
		AutoConfirm:            cfg.Engine.AutoConfirm,
		PremiumDiscountPercent: decimal.NewFromFloat(cfg.Engine.PremiumDiscount),
		ReminderLead:           cfg.ReminderLeadDuration(),
		NotificationRetention:  cfg.NotificationRetention(),
	}
}

// Engine is the entry point for transports and jobs. The services are
// exported for the operations the facade does not wrap.
type Engine struct {
	Resources     ResourceService
	Availability  AvailabilityService
	SoftLocks     SoftLockService
	Bookings      BookingService
	Penalties     PenaltyService
	Ratings       RatingService
	Discounts     DiscountResolver
	Notifications NotificationService
}

func NewEngine(repos repository.Set, dispatcher notify.Dispatcher, clk clock.Clock, m *metrics.Metrics, opts Options) *Engine {
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher()
	}
	notes := NewNotificationService(repos.Notifications, dispatcher, clk, m, opts.NotificationRetention)
	resources := NewResourceService(repos.Resources, repos.Bookings, clk)
	ratings := NewRatingService(repos.Bookings, repos.Penalties, repos.Users, repos.Ratings, clk, m, opts.RatingWindow)
	locks := NewSoftLockService(repos.SoftLocks, repos.Resources, clk, m, opts.SoftLockTTL)

	return &Engine{
		Resources:     resources,
		Availability:  NewAvailabilityService(repos.Bookings),
		SoftLocks:     locks,
		Bookings:      NewBookingService(repos.Bookings, repos.Resources, locks, ratings, resources, notes, clk, m, BookingPolicy{AutoConfirm: opts.AutoConfirm, ReminderLead: opts.ReminderLead}),
		Penalties:     NewPenaltyService(repos.Penalties, repos.Bookings, ratings, notes, clk, m, opts.PenaltyDailyRate),
		Ratings:       ratings,
		Discounts:     NewDiscountResolver(repos.Discounts, repos.Resources, ratings, clk, opts.PremiumDiscountPercent),
		Notifications: notes,
	}
}

func (e *Engine) CheckAvailability(ctx context.Context, resourceID string, w domain.Window) (*Availability, error) {
	return e.Availability.CheckAvailability(ctx, resourceID, w)
}

func (e *Engine) AcquireSoftLock(ctx context.Context, userID, resourceID string) (*domain.SoftLock, error) {
	return e.SoftLocks.Acquire(ctx, userID, resourceID)
}

func (e *Engine) ReleaseSoftLock(ctx context.Context, userID string) error {
	return e.SoftLocks.Release(ctx, userID)
}

// CreateBooking books the window. With a nil price the window is priced from
// the resource's rates and the best discount, which is redeemed on success.
func (e *Engine) CreateBooking(ctx context.Context, userID, resourceID string, w domain.Window, price *decimal.Decimal) (*domain.Booking, error) {
	req := CreateBookingRequest{UserID: userID, ResourceID: resourceID, Window: w}
	var quote *domain.Quote
	if price != nil {
		req.Price = *price
	} else {
		q, err := e.Discounts.Quote(ctx, userID, resourceID, w)
		if err != nil {
			return nil, err
		}
		quote = q
		req.Price, req.DiscountID = q.FinalPrice, q.DiscountID
	}

	b, err := e.Bookings.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.Discounts.Redeem(ctx, quote); err != nil {
		// the booking stands at the quoted price even if the cap was hit meanwhile
		logger.Warn("Discount redemption failed", "bookingID", b.ID, "error", err)
	}
	return b, nil
}

func (e *Engine) ConfirmBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return e.Bookings.Confirm(ctx, bookingID)
}

func (e *Engine) CompleteBooking(ctx context.Context, bookingID string, outcome domain.Outcome) (*domain.Booking, error) {
	return e.Bookings.Complete(ctx, bookingID, outcome)
}

func (e *Engine) CancelBooking(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	return e.Bookings.Cancel(ctx, bookingID, reason)
}

func (e *Engine) GetUserRating(ctx context.Context, userID string) (*domain.RatingScore, error) {
	return e.Ratings.GetUserRating(ctx, userID)
}

func (e *Engine) RunOverdueSweep(ctx context.Context) (*SweepReport, error) {
	return e.timed(func() (*SweepReport, error) { return e.Penalties.AssessOverdue(ctx) })
}

func (e *Engine) RunExpirySweep(ctx context.Context) (*SweepReport, error) {
	return e.timed(func() (*SweepReport, error) { return e.SoftLocks.SweepExpired(ctx) })
}

func (e *Engine) RunReminderSweep(ctx context.Context) (*SweepReport, error) {
	return e.timed(func() (*SweepReport, error) { return e.Bookings.SendReminders(ctx) })
}

func (e *Engine) RunNotificationCleanup(ctx context.Context) (*SweepReport, error) {
	return e.timed(func() (*SweepReport, error) { return e.Notifications.Cleanup(ctx) })
}

// RunStatusRefresh re-derives resource statuses as booking windows start.
func (e *Engine) RunStatusRefresh(ctx context.Context) (*SweepReport, error) {
	return e.timed(func() (*SweepReport, error) { return e.Resources.RefreshStatuses(ctx) })
}

func (e *Engine) timed(run func() (*SweepReport, error)) (*SweepReport, error) {
	start := time.Now()
	report, err := run()
	if report != nil {
		report.Duration = time.Since(start)
	}
	return report, err
}
