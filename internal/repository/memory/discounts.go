package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"consolerent-backend/internal/domain"
)

type DiscountRepository struct {
	mu        sync.Mutex
	discounts map[string]domain.Discount
}

func NewDiscountRepository() *DiscountRepository {
	return &DiscountRepository{discounts: make(map[string]domain.Discount)}
}

func (r *DiscountRepository) Create(ctx context.Context, d *domain.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	r.discounts[d.ID] = cloneDiscount(*d)
	return nil
}

func (r *DiscountRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Discount
	for _, d := range r.discounts {
		if d.Active && !now.Before(d.StartsAt) && !now.After(d.EndsAt) {
			out = append(out, cloneDiscount(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *DiscountRepository) IncrementUsage(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if d.MaxUsage != nil && d.UsedCount >= *d.MaxUsage {
		return domain.ErrDiscountExhausted
	}
	d.UsedCount++
	r.discounts[id] = d
	return nil
}

func cloneDiscount(d domain.Discount) domain.Discount {
	if d.ResourceID != nil {
		id := *d.ResourceID
		d.ResourceID = &id
	}
	if d.MaxUsage != nil {
		m := *d.MaxUsage
		d.MaxUsage = &m
	}
	return d
}
