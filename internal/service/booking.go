package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/repository"
)

const DefaultReminderLead = 24 * time.Hour

// BookingPolicy holds deployment choices for the lifecycle.
type BookingPolicy struct {
	// AutoConfirm confirms new bookings right away unless the user's tier
	// requires manual approval.
	AutoConfirm  bool
	ReminderLead time.Duration
}

type bookingService struct {
	bookingRepo  repository.BookingRepository
	resourceRepo repository.ResourceRepository
	locks        SoftLockService
	ratings      RatingService
	resources    ResourceService
	notes        NotificationService
	clock        clock.Clock
	metrics      *metrics.Metrics
	policy       BookingPolicy
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	resourceRepo repository.ResourceRepository,
	locks SoftLockService,
	ratings RatingService,
	resources ResourceService,
	notes NotificationService,
	clk clock.Clock,
	m *metrics.Metrics,
	policy BookingPolicy,
) BookingService {
	if policy.ReminderLead <= 0 {
		policy.ReminderLead = DefaultReminderLead
	}
	return &bookingService{
		bookingRepo:  bookingRepo,
		resourceRepo: resourceRepo,
		locks:        locks,
		ratings:      ratings,
		resources:    resources,
		notes:        notes,
		clock:        clk,
		metrics:      m,
		policy:       policy,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	logger.EnterMethod("BookingService.CreateBooking", "userID", req.UserID, "resourceID", req.ResourceID)
	if err := req.Window.Validate(); err != nil {
		logger.ExitMethodWithError("BookingService.CreateBooking", err)
		return nil, err
	}
	if req.Price.IsNegative() {
		logger.ExitMethodWithError("BookingService.CreateBooking", domain.ErrInvalidPrice)
		return nil, domain.ErrInvalidPrice
	}
	res, err := s.resourceRepo.GetByID(ctx, req.ResourceID)
	if err != nil {
		logger.ExitMethodWithError("BookingService.CreateBooking", err)
		return nil, err
	}
	if res.Status == domain.ResourceStatusMaintenance {
		logger.ExitMethodWithError("BookingService.CreateBooking", domain.ErrResourceNotBookable)
		return nil, domain.ErrResourceNotBookable
	}

	now := s.clock.Now()
	b := &domain.Booking{
		ID:         uuid.New().String(),
		ResourceID: req.ResourceID,
		UserID:     req.UserID,
		Window:     req.Window,
		Status:     domain.BookingStatusPending,
		Price:      req.Price,
		DiscountID: req.DiscountID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.bookingRepo.CreateIfAvailable(ctx, b); err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			s.metrics.RecordBookingConflict()
			logger.Info("Booking refused, slot unavailable", "resourceID", req.ResourceID, "window", req.Window.String())
		}
		logger.ExitMethodWithError("BookingService.CreateBooking", err)
		return nil, err
	}
	s.metrics.RecordBookingCreated()

	// the checkout is over, whatever the user was holding
	if err := s.locks.Release(ctx, req.UserID); err != nil {
		logger.Warn("Failed to release soft lock after booking", "userID", req.UserID, "error", err)
	}

	s.notifyBooking(ctx, b, domain.NotificationBookingRequested, "Booking requested",
		fmt.Sprintf("Your booking for %s %s was received.", res.Name, b.Window))

	if s.policy.AutoConfirm && s.autoConfirmAllowed(ctx, req.UserID) {
		confirmed, err := s.Confirm(ctx, b.ID)
		if err != nil {
			logger.Warn("Auto-confirm failed", "bookingID", b.ID, "error", err)
		} else {
			b = confirmed
		}
	}

	s.refreshStatus(ctx, b.ResourceID)
	logger.ExitMethod("BookingService.CreateBooking", "bookingID", b.ID, "status", string(b.Status))
	return b, nil
}

func (s *bookingService) autoConfirmAllowed(ctx context.Context, userID string) bool {
	score, err := s.ratings.GetUserRating(ctx, userID)
	if err != nil {
		logger.Warn("Rating unavailable, leaving booking pending", "userID", userID, "error", err)
		return false
	}
	return !score.RequiresApproval()
}

func (s *bookingService) Confirm(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.transition(ctx, bookingID, domain.BookingStatusConfirmed, nil)
	if err != nil {
		return nil, err
	}
	s.notifyBooking(ctx, b, domain.NotificationBookingConfirmed, "Booking confirmed",
		fmt.Sprintf("Your booking %s is confirmed.", b.Window))
	s.refreshStatus(ctx, b.ResourceID)
	return b, nil
}

func (s *bookingService) Complete(ctx context.Context, bookingID string, outcome domain.Outcome) (*domain.Booking, error) {
	if err := outcome.Validate(); err != nil {
		return nil, err
	}
	b, err := s.transition(ctx, bookingID, domain.BookingStatusCompleted, func(b *domain.Booking, now time.Time) {
		b.Outcome = &outcome
		b.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.notifyBooking(ctx, b, domain.NotificationBookingCompleted, "Rental completed",
		"Thanks for returning the console.")
	if _, err := s.ratings.Recompute(ctx, b.UserID); err != nil {
		logger.Warn("Rating recompute after completion failed", "userID", b.UserID, "error", err)
	}
	s.refreshStatus(ctx, b.ResourceID)
	return b, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	b, err := s.transition(ctx, bookingID, domain.BookingStatusCancelled, func(b *domain.Booking, _ time.Time) {
		b.CancelReason = reason
	})
	if err != nil {
		return nil, err
	}
	s.notifyBooking(ctx, b, domain.NotificationBookingCancelled, "Booking cancelled",
		fmt.Sprintf("Your booking %s was cancelled.", b.Window))
	s.refreshStatus(ctx, b.ResourceID)
	return b, nil
}

// transition loads the booking, checks the lifecycle and writes the change
// with a compare-and-set on the previous status.
func (s *bookingService) transition(ctx context.Context, bookingID string, next domain.BookingStatus, mutate func(*domain.Booking, time.Time)) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.CanTransition(next) {
		return nil, fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidTransition, b.ID, b.Status)
	}
	from := b.Status
	now := s.clock.Now()
	b.Status = next
	b.UpdatedAt = now
	if mutate != nil {
		mutate(b, now)
	}
	if err := s.bookingRepo.Transition(ctx, b, from); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(string(next))
	logger.Info("Booking status changed", "bookingID", b.ID, "from", string(from), "to", string(next))
	return b, nil
}

func (s *bookingService) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.bookingRepo.GetByID(ctx, bookingID)
}

func (s *bookingService) ListByResource(ctx context.Context, resourceID string, w *domain.Window) ([]domain.Booking, error) {
	active, err := s.bookingRepo.ListActiveByResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return active, nil
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(active))
	for _, b := range active {
		if b.Window.Overlaps(*w) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookingRepo.ListByUser(ctx, userID)
}

// SendReminders notifies once per confirmed booking ending within the lead
// time. The dedup key stored with the notification keeps repeated sweeps quiet.
func (s *bookingService) SendReminders(ctx context.Context) (*SweepReport, error) {
	now := s.clock.Now()
	report := &SweepReport{Job: "reminder-sweep"}

	ending, err := s.bookingRepo.ListEndingBetween(ctx, now, now.Add(s.policy.ReminderLead))
	if err != nil {
		return report, fmt.Errorf("list bookings ending soon: %w", err)
	}
	report.Examined = len(ending)

	for _, b := range ending {
		err := s.notes.Notify(ctx, &domain.Notification{
			UserID:    b.UserID,
			Kind:      domain.NotificationRentalReminder,
			BookingID: b.ID,
			DedupKey:  domain.NotificationDedupKey(b.ID, domain.NotificationRentalReminder),
			Title:     "Rental ending soon",
			Message:   fmt.Sprintf("Please return the console by %s.", b.Window.End.Format(time.RFC1123)),
			Attributes: map[string]string{
				"resource_id": b.ResourceID,
				"ends_at":     b.Window.End.Format(time.RFC3339),
			},
		})
		switch {
		case errors.Is(err, domain.ErrDuplicateNotification):
			report.Skipped++
		case err != nil:
			logger.Error("Failed to record rental reminder", "bookingID", b.ID, "error", err)
			report.Failed++
		default:
			report.Applied++
		}
	}
	return report, nil
}

func (s *bookingService) notifyBooking(ctx context.Context, b *domain.Booking, kind domain.NotificationKind, title, message string) {
	emit(ctx, s.notes, &domain.Notification{
		UserID:    b.UserID,
		Kind:      kind,
		BookingID: b.ID,
		Title:     title,
		Message:   message,
		Attributes: map[string]string{
			"resource_id": b.ResourceID,
			"status":      string(b.Status),
			"price":       b.Price.String(),
		},
	})
}

func (s *bookingService) refreshStatus(ctx context.Context, resourceID string) {
	if _, err := s.resources.RefreshStatus(ctx, resourceID); err != nil {
		logger.Warn("Failed to refresh resource status", "resourceID", resourceID, "error", err)
	}
}
