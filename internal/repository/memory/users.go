package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"consolerent-backend/internal/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) AddLoyaltyCredits(ctx context.Context, id string, credits int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LoyaltyCredits += credits
	r.users[id] = u
	return nil
}

type RatingRepository struct {
	mu     sync.RWMutex
	scores map[string]domain.RatingScore
}

func NewRatingRepository() *RatingRepository {
	return &RatingRepository{scores: make(map[string]domain.RatingScore)}
}

func (r *RatingRepository) Save(ctx context.Context, score *domain.RatingScore) error {
	r.mu.Lock()
	r.scores[score.UserID] = *score
	r.mu.Unlock()
	return nil
}

func (r *RatingRepository) Get(ctx context.Context, userID string) (*domain.RatingScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scores[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}
