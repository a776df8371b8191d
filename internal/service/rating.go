package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/repository"
)

const (
	DefaultRatingWindow = 5

	neutralDiscipline = 50.0

	lateDeduction      = 20.0
	damagedDeduction   = 30.0
	violationDeduction = 10.0

	loyaltyPerRental  = 5
	loyaltyRentalCap  = 30
	loyaltyTenureMid  = 10
	loyaltyTenureLong = 20
	tenureMidDays     = 180
	tenureLongDays    = 365
	maxComponentScore = 100.0
)

type ratingService struct {
	bookingRepo repository.BookingRepository
	penaltyRepo repository.PenaltyRepository
	userRepo    repository.UserRepository
	ratingRepo  repository.RatingRepository
	clock       clock.Clock
	metrics     *metrics.Metrics
	window      int
}

func NewRatingService(
	bookingRepo repository.BookingRepository,
	penaltyRepo repository.PenaltyRepository,
	userRepo repository.UserRepository,
	ratingRepo repository.RatingRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	window int,
) RatingService {
	if window <= 0 {
		window = DefaultRatingWindow
	}
	return &ratingService{
		bookingRepo: bookingRepo,
		penaltyRepo: penaltyRepo,
		userRepo:    userRepo,
		ratingRepo:  ratingRepo,
		clock:       clk,
		metrics:     m,
		window:      window,
	}
}

func (s *ratingService) Recompute(ctx context.Context, userID string) (*domain.RatingScore, error) {
	recent, err := s.bookingRepo.ListRecentCompletedByUser(ctx, userID, s.window)
	if err != nil {
		return nil, fmt.Errorf("load recent bookings: %w", err)
	}
	penalties, err := s.penaltyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load penalties: %w", err)
	}
	completed, err := s.bookingRepo.CountCompletedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count completed bookings: %w", err)
	}

	// users registered elsewhere may have no profile here yet
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	discipline := DisciplineScore(recent, penalties)
	loyalty := LoyaltyScore(completed, user, now)
	final := int(math.Round(discipline*domain.DisciplineWeight + loyalty*domain.LoyaltyWeight))

	score := &domain.RatingScore{
		UserID:          userID,
		DisciplineScore: discipline,
		LoyaltyScore:    loyalty,
		FinalScore:      final,
		Tier:            domain.TierFor(final),
		ComputedAt:      now,
	}
	if err := s.ratingRepo.Save(ctx, score); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	s.metrics.RecordRatingRecomputed()
	logger.Info("Rating recomputed", "userID", userID, "finalScore", final, "tier", string(score.Tier))
	return score, nil
}

func (s *ratingService) GetUserRating(ctx context.Context, userID string) (*domain.RatingScore, error) {
	score, err := s.ratingRepo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.Recompute(ctx, userID)
	}
	return score, err
}

func (s *ratingService) GrantLoyaltyCredit(ctx context.Context, userID string, credits int) (*domain.RatingScore, error) {
	if credits <= 0 {
		return nil, domain.ErrInvalidCredits
	}
	err := s.userRepo.AddLoyaltyCredits(ctx, userID, credits)
	if errors.Is(err, domain.ErrNotFound) {
		err = s.userRepo.Create(ctx, &domain.User{ID: userID, LoyaltyCredits: credits, CreatedAt: s.clock.Now()})
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Loyalty credits granted", "userID", userID, "credits", credits)
	return s.Recompute(ctx, userID)
}

// DisciplineScore averages per-booking scores over the given completed
// bookings. A late_return penalty that was waived forgives the lateness.
func DisciplineScore(recent []domain.Booking, penalties []domain.Penalty) float64 {
	if len(recent) == 0 {
		return neutralDiscipline
	}
	latePenalty := make(map[string]domain.PenaltyStatus)
	for _, p := range penalties {
		if p.Kind == domain.PenaltyKindLateReturn {
			latePenalty[p.BookingID] = p.Status
		}
	}

	total := 0.0
	for _, b := range recent {
		score := maxComponentScore
		late := b.Outcome != nil && !b.Outcome.OnTime
		if status, ok := latePenalty[b.ID]; ok {
			late = status != domain.PenaltyStatusWaived
		}
		if late {
			score -= lateDeduction
		}
		if b.Outcome != nil {
			if b.Outcome.Condition == domain.ConditionDamaged {
				score -= damagedDeduction
			}
			if b.Outcome.Violation == domain.ViolationMajor {
				score -= violationDeduction
			}
		}
		total += math.Max(0, math.Min(maxComponentScore, score))
	}
	return total / float64(len(recent))
}

// LoyaltyScore rewards completed rentals, tenure and granted credits.
func LoyaltyScore(completed int, user *domain.User, now time.Time) float64 {
	score := loyaltyPerRental * completed
	if score > loyaltyRentalCap {
		score = loyaltyRentalCap
	}
	if user != nil {
		switch tenure := user.TenureDays(now); {
		case tenure >= tenureLongDays:
			score += loyaltyTenureLong
		case tenure >= tenureMidDays:
			score += loyaltyTenureMid
		}
		score += user.LoyaltyCredits
	}
	return math.Min(maxComponentScore, float64(score))
}
