package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository/memory"
)

func newResolver(t *testing.T, ratings RatingService) (DiscountResolver, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.ResourceRepository.Create(context.Background(), &domain.Resource{
		ID:          "r1",
		Name:        "PS5",
		HourlyPrice: decimal.NewFromInt(10),
		DailyPrice:  decimal.NewFromInt(150),
		Status:      domain.ResourceStatusAvailable,
	}))
	return NewDiscountResolver(store.DiscountRepository, store.ResourceRepository, ratings, clock.NewFixed(at(0, 8)), DefaultPremiumDiscountPercent), store
}

func catalogEntry(name string, typ domain.DiscountType, value int64) *domain.Discount {
	return &domain.Discount{
		Name:     name,
		Type:     typ,
		Value:    decimal.NewFromInt(value),
		StartsAt: at(-7, 0),
		EndsAt:   at(7, 0),
		Active:   true,
	}
}

func TestDiscountResolver_PremiumBeatsSmallerCatalogDiscount(t *testing.T) {
	ratings := new(MockRatingService)
	ctx := context.Background()
	ratings.On("GetUserRating", ctx, "vip").Return(&domain.RatingScore{UserID: "vip", FinalScore: 90, Tier: domain.TierPremium}, nil)

	r, _ := newResolver(t, ratings)
	require.NoError(t, r.CreateDiscount(ctx, catalogEntry("spring", domain.DiscountPercentage, 10)))

	q, err := r.Resolve(ctx, "vip", "r1", mustWindow(t, at(0, 10), at(0, 20)), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, q.Saved.Equal(decimal.NewFromInt(15)), "got %s", q.Saved)
	assert.True(t, q.FinalPrice.Equal(decimal.NewFromInt(85)))
	assert.Nil(t, q.DiscountID)
	assert.Equal(t, "tier:premium", q.Source)
	ratings.AssertExpectations(t)
}

func TestDiscountResolver_LargerCatalogDiscountWins(t *testing.T) {
	ratings := new(MockRatingService)
	ctx := context.Background()
	ratings.On("GetUserRating", ctx, "vip").Return(&domain.RatingScore{Tier: domain.TierPremium}, nil)

	r, _ := newResolver(t, ratings)
	require.NoError(t, r.CreateDiscount(ctx, catalogEntry("flat", domain.DiscountFixed, 20)))

	q, err := r.Resolve(ctx, "vip", "r1", mustWindow(t, at(0, 10), at(0, 20)), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, q.FinalPrice.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, q.DiscountID)
	assert.Equal(t, "catalog:flat", q.Source)
}

func TestDiscountResolver_RatingFailureFallsBackToCatalog(t *testing.T) {
	ratings := new(MockRatingService)
	ctx := context.Background()
	ratings.On("GetUserRating", ctx, "u").Return(nil, errors.New("db down"))

	r, _ := newResolver(t, ratings)
	q, err := r.Resolve(ctx, "u", "r1", mustWindow(t, at(0, 10), at(0, 12)), decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, q.Saved.IsZero())
	assert.True(t, q.FinalPrice.Equal(decimal.NewFromInt(20)))
}

func TestDiscountResolver_QuoteUsesResourceRates(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()

	q, err := r.Quote(ctx, "", "r1", mustWindow(t, at(0, 10), at(0, 13)))
	require.NoError(t, err)
	assert.True(t, q.BasePrice.Equal(decimal.NewFromInt(30)))

	q, err = r.Quote(ctx, "", "r1", mustWindow(t, at(0, 0), at(1, 0)))
	require.NoError(t, err)
	assert.True(t, q.BasePrice.Equal(decimal.NewFromInt(150)))

	_, err = r.Quote(ctx, "", "missing", mustWindow(t, at(0, 0), at(1, 0)))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDiscountResolver_MinHoursAndRedeem(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()

	weekend := catalogEntry("long", domain.DiscountPercentage, 20)
	weekend.MinHours = 24
	maxUsage := 1
	weekend.MaxUsage = &maxUsage
	require.NoError(t, r.CreateDiscount(ctx, weekend))

	short, err := r.Resolve(ctx, "", "r1", mustWindow(t, at(0, 10), at(0, 12)), decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Nil(t, short.DiscountID)

	long, err := r.Resolve(ctx, "", "r1", mustWindow(t, at(0, 0), at(2, 0)), decimal.NewFromInt(300))
	require.NoError(t, err)
	require.NotNil(t, long.DiscountID)
	assert.True(t, long.FinalPrice.Equal(decimal.NewFromInt(240)))

	require.NoError(t, r.Redeem(ctx, long))
	assert.ErrorIs(t, r.Redeem(ctx, long), domain.ErrDiscountExhausted)
	require.NoError(t, r.Redeem(ctx, short))

	again, err := r.Resolve(ctx, "", "r1", mustWindow(t, at(0, 0), at(2, 0)), decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Nil(t, again.DiscountID)
	assert.True(t, again.FinalPrice.Equal(decimal.NewFromInt(300)))
}

func TestDiscountResolver_CreateValidation(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()

	bad := catalogEntry("too much", domain.DiscountPercentage, 120)
	assert.ErrorIs(t, r.CreateDiscount(ctx, bad), domain.ErrInvalidDiscount)

	bad = catalogEntry("zero", domain.DiscountFixed, 0)
	assert.ErrorIs(t, r.CreateDiscount(ctx, bad), domain.ErrInvalidDiscount)

	bad = catalogEntry("backwards", domain.DiscountFixed, 5)
	bad.EndsAt = bad.StartsAt
	assert.ErrorIs(t, r.CreateDiscount(ctx, bad), domain.ErrInvalidDiscount)

	bad = catalogEntry("odd", "bogo", 5)
	assert.ErrorIs(t, r.CreateDiscount(ctx, bad), domain.ErrInvalidDiscount)
}
