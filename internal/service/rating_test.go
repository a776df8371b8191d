package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/domain"
)

func outcomeBooking(id string, onTime bool, cond domain.ReturnCondition, v domain.RuleViolation) domain.Booking {
	return domain.Booking{
		ID:      id,
		Status:  domain.BookingStatusCompleted,
		Outcome: &domain.Outcome{OnTime: onTime, Condition: cond, Violation: v},
	}
}

func TestDisciplineScore(t *testing.T) {
	tests := []struct {
		name      string
		bookings  []domain.Booking
		penalties []domain.Penalty
		want      float64
	}{
		{"NoHistory", nil, nil, 50},
		{"Perfect", []domain.Booking{outcomeBooking("a", true, domain.ConditionPerfect, domain.ViolationNone)}, nil, 100},
		{"Late", []domain.Booking{outcomeBooking("a", false, domain.ConditionGood, domain.ViolationNone)}, nil, 80},
		{"LateDamagedMajor", []domain.Booking{outcomeBooking("a", false, domain.ConditionDamaged, domain.ViolationMajor)}, nil, 40},
		{"MinorViolationFree", []domain.Booking{outcomeBooking("a", true, domain.ConditionGood, domain.ViolationMinor)}, nil, 100},
		{
			"Averaged",
			[]domain.Booking{
				outcomeBooking("a", true, domain.ConditionPerfect, domain.ViolationNone),
				outcomeBooking("b", false, domain.ConditionDamaged, domain.ViolationNone),
			},
			nil,
			75,
		},
		{
			"PendingLatePenaltyCountsAsLate",
			[]domain.Booking{outcomeBooking("a", true, domain.ConditionPerfect, domain.ViolationNone)},
			[]domain.Penalty{{BookingID: "a", Kind: domain.PenaltyKindLateReturn, Status: domain.PenaltyStatusPending}},
			80,
		},
		{
			"WaivedLatePenaltyForgiven",
			[]domain.Booking{outcomeBooking("a", false, domain.ConditionPerfect, domain.ViolationNone)},
			[]domain.Penalty{{BookingID: "a", Kind: domain.PenaltyKindLateReturn, Status: domain.PenaltyStatusWaived}},
			100,
		},
		{
			"DamagePenaltyIsNotLateness",
			[]domain.Booking{outcomeBooking("a", true, domain.ConditionPerfect, domain.ViolationNone)},
			[]domain.Penalty{{BookingID: "a", Kind: domain.PenaltyKindDamage, Status: domain.PenaltyStatusPending}},
			100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisciplineScore(tt.bookings, tt.penalties))
		})
	}
}

func TestLoyaltyScore(t *testing.T) {
	now := at(0, 0)
	user := func(tenureDays, credits int) *domain.User {
		return &domain.User{CreatedAt: now.AddDate(0, 0, -tenureDays), LoyaltyCredits: credits}
	}

	assert.Equal(t, 0.0, LoyaltyScore(0, nil, now))
	assert.Equal(t, 15.0, LoyaltyScore(3, nil, now))
	assert.Equal(t, 30.0, LoyaltyScore(20, nil, now))
	assert.Equal(t, 5.0, LoyaltyScore(1, user(179, 0), now))
	assert.Equal(t, 15.0, LoyaltyScore(1, user(180, 0), now))
	assert.Equal(t, 25.0, LoyaltyScore(1, user(365, 0), now))
	assert.Equal(t, 100.0, LoyaltyScore(6, user(400, 90), now))
}

func TestRating_Deterministic(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1")
	f.addUser(t, "alice", 400*day, 0)
	ctx := context.Background()

	good := f.bookAndConfirm(t, "alice", "r1", at(0, 10), at(0, 12), 20)
	_, err := f.engine.CompleteBooking(ctx, good.ID, domain.Outcome{OnTime: true, Condition: domain.ConditionPerfect, Violation: domain.ViolationNone})
	require.NoError(t, err)
	bad := f.bookAndConfirm(t, "alice", "r1", at(1, 10), at(1, 12), 20)
	_, err = f.engine.CompleteBooking(ctx, bad.ID, domain.Outcome{OnTime: false, Condition: domain.ConditionDamaged, Violation: domain.ViolationNone})
	require.NoError(t, err)

	first, err := f.engine.Ratings.Recompute(ctx, "alice")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.engine.Ratings.Recompute(ctx, "alice")
	require.NoError(t, err)

	// discipline (100+50)/2 = 75, loyalty 2*5 + 20 = 30, final round(45+12) = 57
	for _, s := range []*domainScore{toScore(first), toScore(second)} {
		assert.Equal(t, 75.0, s.discipline)
		assert.Equal(t, 30.0, s.loyalty)
		assert.Equal(t, 57, s.final)
		assert.Equal(t, domain.TierRegular, s.tier)
	}
	assert.True(t, second.ComputedAt.After(first.ComputedAt))
}

type domainScore struct {
	discipline float64
	loyalty    float64
	final      int
	tier       domain.Tier
}

func toScore(s *domain.RatingScore) *domainScore {
	return &domainScore{s.DisciplineScore, s.LoyaltyScore, s.FinalScore, s.Tier}
}

func TestRating_OnlyRecentWindowCounts(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RatingWindow = 2 })
	f.addResource(t, "r1")
	ctx := context.Background()

	outcomes := []domain.Outcome{
		{OnTime: false, Condition: domain.ConditionDamaged, Violation: domain.ViolationMajor},
		{OnTime: true, Condition: domain.ConditionPerfect, Violation: domain.ViolationNone},
		{OnTime: true, Condition: domain.ConditionGood, Violation: domain.ViolationNone},
	}
	for i, o := range outcomes {
		b := f.bookAndConfirm(t, "alice", "r1", at(i, 10), at(i, 12), 20)
		f.clock.Set(at(i, 12))
		_, err := f.engine.CompleteBooking(ctx, b.ID, o)
		require.NoError(t, err)
	}

	score, err := f.engine.GetUserRating(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100.0, score.DisciplineScore)
	assert.Equal(t, 15.0, score.LoyaltyScore)
}

func TestRating_TierBoundaries(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1")
	f.addUser(t, "alice", 400*day, 0)
	ctx := context.Background()

	b := f.bookAndConfirm(t, "alice", "r1", at(0, 10), at(0, 12), 20)
	_, err := f.engine.CompleteBooking(ctx, b.ID, domain.Outcome{OnTime: true, Condition: domain.ConditionPerfect, Violation: domain.ViolationNone})
	require.NoError(t, err)

	// discipline 100, loyalty 5 + 20 + 23 = 48: 60 + 19.2 = 79.2
	score, err := f.engine.Ratings.GrantLoyaltyCredit(ctx, "alice", 23)
	require.NoError(t, err)
	assert.Equal(t, 79, score.FinalScore)
	assert.Equal(t, domain.TierRegular, score.Tier)

	// loyalty 49: 60 + 19.6 rounds to 80
	score, err = f.engine.Ratings.GrantLoyaltyCredit(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 80, score.FinalScore)
	assert.Equal(t, domain.TierPremium, score.Tier)

	// no history: 30 + 0.4*loyalty; 47 credits give 48.8, 50 credits give 50
	score, err = f.engine.Ratings.GrantLoyaltyCredit(ctx, "bob", 47)
	require.NoError(t, err)
	assert.Equal(t, 49, score.FinalScore)
	assert.Equal(t, domain.TierRisk, score.Tier)
	assert.True(t, score.RequiresApproval())

	score, err = f.engine.Ratings.GrantLoyaltyCredit(ctx, "bob", 3)
	require.NoError(t, err)
	assert.Equal(t, 50, score.FinalScore)
	assert.Equal(t, domain.TierRegular, score.Tier)

	_, err = f.engine.Ratings.GrantLoyaltyCredit(ctx, "bob", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCredits)
}
