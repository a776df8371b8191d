package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"consolerent-backend/internal/domain"
)

type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) Recompute(ctx context.Context, userID string) (*domain.RatingScore, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingScore), args.Error(1)
}

func (m *MockRatingService) GetUserRating(ctx context.Context, userID string) (*domain.RatingScore, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingScore), args.Error(1)
}

func (m *MockRatingService) GrantLoyaltyCredit(ctx context.Context, userID string, credits int) (*domain.RatingScore, error) {
	args := m.Called(ctx, userID, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingScore), args.Error(1)
}

type MockPenaltyRepo struct {
	mock.Mock
}

func (m *MockPenaltyRepo) Create(ctx context.Context, p *domain.Penalty) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPenaltyRepo) GetByID(ctx context.Context, id string) (*domain.Penalty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Penalty), args.Error(1)
}

func (m *MockPenaltyRepo) Transition(ctx context.Context, p *domain.Penalty, from domain.PenaltyStatus) error {
	args := m.Called(ctx, p, from)
	return args.Error(0)
}

func (m *MockPenaltyRepo) ListByUser(ctx context.Context, userID string) ([]domain.Penalty, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Penalty), args.Error(1)
}

func (m *MockPenaltyRepo) ExistsForBooking(ctx context.Context, bookingID string, kind domain.PenaltyKind) (bool, error) {
	args := m.Called(ctx, bookingID, kind)
	return args.Bool(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func (m *MockNotificationService) Cleanup(ctx context.Context) (*SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SweepReport), args.Error(1)
}
