package postgres

import (
	"context"
	"database/sql"
	"errors"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, loyalty_credits, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.LoyaltyCredits, u.CreatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, name, loyalty_credits, created_at FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.LoyaltyCredits, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) AddLoyaltyCredits(ctx context.Context, id string, credits int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET loyalty_credits = loyalty_credits + $1 WHERE id = $2`, credits, id)
	if err != nil {
		return err
	}
	return rowsAffectedOr(res, domain.ErrNotFound)
}

type ratingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) repository.RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Save(ctx context.Context, s *domain.RatingScore) error {
	query := `INSERT INTO rating_snapshots (user_id, discipline_score, loyalty_score, final_score, tier, computed_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (user_id) DO UPDATE
	          SET discipline_score = EXCLUDED.discipline_score, loyalty_score = EXCLUDED.loyalty_score,
	              final_score = EXCLUDED.final_score, tier = EXCLUDED.tier, computed_at = EXCLUDED.computed_at`
	_, err := r.db.ExecContext(ctx, query, s.UserID, s.DisciplineScore, s.LoyaltyScore, s.FinalScore, s.Tier, s.ComputedAt)
	return err
}

func (r *ratingRepository) Get(ctx context.Context, userID string) (*domain.RatingScore, error) {
	s := &domain.RatingScore{}
	query := `SELECT user_id, discipline_score, loyalty_score, final_score, tier, computed_at FROM rating_snapshots WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.DisciplineScore, &s.LoyaltyScore, &s.FinalScore, &s.Tier, &s.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
