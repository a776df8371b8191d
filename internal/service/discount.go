package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/repository"
)

const (
	quoteSourceCatalog = "catalog"
	quoteSourceTier    = "tier:premium"
)

var DefaultPremiumDiscountPercent = decimal.NewFromInt(15)

type discountResolver struct {
	discountRepo   repository.DiscountRepository
	resourceRepo   repository.ResourceRepository
	ratings        RatingService
	clock          clock.Clock
	premiumPercent decimal.Decimal
}

// NewDiscountResolver builds a resolver. ratings may be nil, which disables
// tier benefits.
func NewDiscountResolver(
	discountRepo repository.DiscountRepository,
	resourceRepo repository.ResourceRepository,
	ratings RatingService,
	clk clock.Clock,
	premiumPercent decimal.Decimal,
) DiscountResolver {
	return &discountResolver{
		discountRepo:   discountRepo,
		resourceRepo:   resourceRepo,
		ratings:        ratings,
		clock:          clk,
		premiumPercent: premiumPercent,
	}
}

// Resolve applies the single largest saving: the best catalog entry or the
// premium tier benefit. Discounts never stack.
func (r *discountResolver) Resolve(ctx context.Context, userID, resourceID string, w domain.Window, basePrice decimal.Decimal) (*domain.Quote, error) {
	if basePrice.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	quote := &domain.Quote{BasePrice: basePrice, Saved: decimal.Zero, FinalPrice: basePrice}

	catalog, err := r.discountRepo.ListActive(ctx, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	if best, saved := domain.BestDiscount(catalog, resourceID, w, basePrice, r.clock.Now()); best != nil {
		id := best.ID
		quote.Saved, quote.DiscountID = saved, &id
		quote.Source = fmt.Sprintf("%s:%s", quoteSourceCatalog, best.Name)
	}

	if tierSaved := r.tierSaving(ctx, userID, basePrice); tierSaved.GreaterThan(quote.Saved) {
		quote.Saved, quote.DiscountID, quote.Source = tierSaved, nil, quoteSourceTier
	}
	quote.FinalPrice = basePrice.Sub(quote.Saved)
	return quote, nil
}

func (r *discountResolver) tierSaving(ctx context.Context, userID string, basePrice decimal.Decimal) decimal.Decimal {
	if r.ratings == nil || userID == "" || !r.premiumPercent.IsPositive() {
		return decimal.Zero
	}
	score, err := r.ratings.GetUserRating(ctx, userID)
	if err != nil {
		logger.Warn("Rating unavailable for tier discount", "userID", userID, "error", err)
		return decimal.Zero
	}
	if score.Tier != domain.TierPremium {
		return decimal.Zero
	}
	return basePrice.Mul(r.premiumPercent).Div(decimal.NewFromInt(100)).Round(2)
}

func (r *discountResolver) Quote(ctx context.Context, userID, resourceID string, w domain.Window) (*domain.Quote, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	res, err := r.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, userID, resourceID, w, res.BasePrice(w))
}

func (r *discountResolver) Redeem(ctx context.Context, quote *domain.Quote) error {
	if quote == nil || quote.DiscountID == nil {
		return nil
	}
	return r.discountRepo.IncrementUsage(ctx, *quote.DiscountID)
}

func (r *discountResolver) CreateDiscount(ctx context.Context, d *domain.Discount) error {
	switch d.Type {
	case domain.DiscountPercentage:
		if d.Value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percentage above 100", domain.ErrInvalidDiscount)
		}
	case domain.DiscountFixed:
	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDiscount, d.Type)
	}
	if !d.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", domain.ErrInvalidDiscount)
	}
	if !d.EndsAt.After(d.StartsAt) {
		return fmt.Errorf("%w: ends before it starts", domain.ErrInvalidDiscount)
	}
	if d.MinHours < 0 {
		return fmt.Errorf("%w: negative minimum hours", domain.ErrInvalidDiscount)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return r.discountRepo.Create(ctx, d)
}
