package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"consolerent-backend/internal/domain"
)

type penaltyKey struct {
	bookingID string
	kind      domain.PenaltyKind
}

type PenaltyRepository struct {
	mu        sync.RWMutex
	penalties map[string]domain.Penalty
	byBooking map[penaltyKey]string
}

func NewPenaltyRepository() *PenaltyRepository {
	return &PenaltyRepository{
		penalties: make(map[string]domain.Penalty),
		byBooking: make(map[penaltyKey]string),
	}
}

func (r *PenaltyRepository) Create(ctx context.Context, p *domain.Penalty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := penaltyKey{bookingID: p.BookingID, kind: p.Kind}
	if _, exists := r.byBooking[key]; exists {
		return domain.ErrDuplicatePenalty
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	r.penalties[p.ID] = clonePenalty(*p)
	r.byBooking[key] = p.ID
	return nil
}

func (r *PenaltyRepository) GetByID(ctx context.Context, id string) (*domain.Penalty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.penalties[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clonePenalty(p)
	return &out, nil
}

func (r *PenaltyRepository) Transition(ctx context.Context, p *domain.Penalty, from domain.PenaltyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.penalties[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from {
		return domain.ErrInvalidTransition
	}
	stored.Status = p.Status
	stored.Reason = p.Reason
	stored.ResolvedAt = p.ResolvedAt
	stored.UpdatedAt = p.UpdatedAt
	r.penalties[p.ID] = clonePenalty(stored)
	return nil
}

func (r *PenaltyRepository) ListByUser(ctx context.Context, userID string) ([]domain.Penalty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Penalty
	for _, p := range r.penalties {
		if p.UserID == userID {
			out = append(out, clonePenalty(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *PenaltyRepository) ExistsForBooking(ctx context.Context, bookingID string, kind domain.PenaltyKind) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byBooking[penaltyKey{bookingID: bookingID, kind: kind}]
	return ok, nil
}

func clonePenalty(p domain.Penalty) domain.Penalty {
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		p.ResolvedAt = &t
	}
	return p
}
