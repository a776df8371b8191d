package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/repository"
)

var DefaultPenaltyDailyRate = decimal.NewFromFloat(0.2)

type penaltyService struct {
	penaltyRepo repository.PenaltyRepository
	bookingRepo repository.BookingRepository
	ratings     RatingService
	notes       NotificationService
	clock       clock.Clock
	metrics     *metrics.Metrics
	dailyRate   decimal.Decimal
}

func NewPenaltyService(
	penaltyRepo repository.PenaltyRepository,
	bookingRepo repository.BookingRepository,
	ratings RatingService,
	notes NotificationService,
	clk clock.Clock,
	m *metrics.Metrics,
	dailyRate decimal.Decimal,
) PenaltyService {
	if !dailyRate.IsPositive() {
		dailyRate = DefaultPenaltyDailyRate
	}
	return &penaltyService{
		penaltyRepo: penaltyRepo,
		bookingRepo: bookingRepo,
		ratings:     ratings,
		notes:       notes,
		clock:       clk,
		metrics:     m,
		dailyRate:   dailyRate,
	}
}

// AssessOverdue creates one late_return penalty per confirmed booking past its
// end. The store's (booking, kind) uniqueness makes concurrent or repeated
// sweeps safe; a duplicate means another pass already handled the booking.
func (s *penaltyService) AssessOverdue(ctx context.Context) (*SweepReport, error) {
	now := s.clock.Now()
	report := &SweepReport{Job: "overdue-sweep"}

	overdue, err := s.bookingRepo.ListOverdue(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list overdue bookings: %w", err)
	}
	report.Examined = len(overdue)

	for i := range overdue {
		b := &overdue[i]
		exists, err := s.penaltyRepo.ExistsForBooking(ctx, b.ID, domain.PenaltyKindLateReturn)
		if err != nil {
			logger.Error("Failed to check existing penalty", "bookingID", b.ID, "error", err)
			report.Failed++
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		daysLate := domain.DaysLate(b.Window.End, now)
		p := &domain.Penalty{
			ID:         uuid.New().String(),
			BookingID:  b.ID,
			UserID:     b.UserID,
			ResourceID: b.ResourceID,
			Kind:       domain.PenaltyKindLateReturn,
			Amount:     domain.LateReturnCharge(b.Price, s.dailyRate, daysLate),
			DaysLate:   daysLate,
			Status:     domain.PenaltyStatusPending,
			Reason:     fmt.Sprintf("returned %d day(s) late", daysLate),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = s.penaltyRepo.Create(ctx, p)
		if errors.Is(err, domain.ErrDuplicatePenalty) {
			report.Skipped++
			continue
		}
		if err != nil {
			logger.Error("Failed to create late return penalty", "bookingID", b.ID, "error", err)
			report.Failed++
			continue
		}
		report.Applied++
		s.created(ctx, p)
	}
	return report, nil
}

func (s *penaltyService) CreatePenalty(ctx context.Context, req CreatePenaltyRequest) (*domain.Penalty, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown penalty kind %q", req.Kind)
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}
	b, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := &domain.Penalty{
		ID:         uuid.New().String(),
		BookingID:  b.ID,
		UserID:     b.UserID,
		ResourceID: b.ResourceID,
		Kind:       req.Kind,
		Amount:     req.Amount,
		Status:     domain.PenaltyStatusPending,
		Reason:     req.Reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Kind == domain.PenaltyKindLateReturn {
		p.DaysLate = domain.DaysLate(b.Window.End, now)
	}
	if err := s.penaltyRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.created(ctx, p)
	return p, nil
}

func (s *penaltyService) created(ctx context.Context, p *domain.Penalty) {
	logger.PenaltyCreated(p.ID, p.BookingID, p.UserID, string(p.Kind), p.Amount.String(), p.DaysLate)
	s.metrics.RecordPenaltyCreated(string(p.Kind))
	emit(ctx, s.notes, &domain.Notification{
		UserID:    p.UserID,
		Kind:      domain.NotificationPenaltyAssessed,
		BookingID: p.BookingID,
		Title:     "Penalty assessed",
		Message:   fmt.Sprintf("A %s penalty of %s was added to your booking.", p.Kind, p.Amount.StringFixed(2)),
		Attributes: map[string]string{
			"penalty_id": p.ID,
			"kind":       string(p.Kind),
			"amount":     p.Amount.String(),
			"days_late":  fmt.Sprintf("%d", p.DaysLate),
		},
	})
}

func (s *penaltyService) Approve(ctx context.Context, penaltyID string) (*domain.Penalty, error) {
	return s.transition(ctx, penaltyID, domain.PenaltyStatusApproved, nil)
}

func (s *penaltyService) Waive(ctx context.Context, penaltyID, reason string) (*domain.Penalty, error) {
	return s.transition(ctx, penaltyID, domain.PenaltyStatusWaived, func(p *domain.Penalty) error {
		if reason != "" {
			p.Reason = reason
		}
		return nil
	})
}

func (s *penaltyService) MarkPaid(ctx context.Context, penaltyID string) (*domain.Penalty, error) {
	return s.transition(ctx, penaltyID, domain.PenaltyStatusPaid, nil)
}

// Dispute is raised by the penalised user. Penalties of other users look missing.
func (s *penaltyService) Dispute(ctx context.Context, penaltyID, userID, reason string) (*domain.Penalty, error) {
	return s.transition(ctx, penaltyID, domain.PenaltyStatusDisputed, func(p *domain.Penalty) error {
		if p.UserID != userID {
			return domain.ErrNotFound
		}
		p.Reason = reason
		return nil
	})
}

func (s *penaltyService) transition(ctx context.Context, penaltyID string, next domain.PenaltyStatus, mutate func(*domain.Penalty) error) (*domain.Penalty, error) {
	p, err := s.penaltyRepo.GetByID(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		if err := mutate(p); err != nil {
			return nil, err
		}
	}
	if !p.CanTransition(next) {
		return nil, fmt.Errorf("%w: penalty %s is %s", domain.ErrInvalidTransition, p.ID, p.Status)
	}

	from := p.Status
	now := s.clock.Now()
	p.Status = next
	p.UpdatedAt = now
	if p.Resolved() {
		p.ResolvedAt = &now
	}
	if err := s.penaltyRepo.Transition(ctx, p, from); err != nil {
		return nil, err
	}
	logger.Info("Penalty status changed", "penaltyID", p.ID, "from", string(from), "to", string(next))

	if p.Resolved() {
		emit(ctx, s.notes, &domain.Notification{
			UserID:    p.UserID,
			Kind:      domain.NotificationPenaltyResolved,
			BookingID: p.BookingID,
			Title:     "Penalty resolved",
			Message:   fmt.Sprintf("Your %s penalty was marked %s.", p.Kind, p.Status),
			Attributes: map[string]string{
				"penalty_id": p.ID,
				"status":     string(p.Status),
			},
		})
		if _, err := s.ratings.Recompute(ctx, p.UserID); err != nil {
			logger.Warn("Rating recompute after penalty resolution failed", "userID", p.UserID, "error", err)
		}
	}
	return p, nil
}

func (s *penaltyService) Get(ctx context.Context, penaltyID string) (*domain.Penalty, error) {
	return s.penaltyRepo.GetByID(ctx, penaltyID)
}

func (s *penaltyService) ListByUser(ctx context.Context, userID string) ([]domain.Penalty, error) {
	return s.penaltyRepo.ListByUser(ctx, userID)
}
