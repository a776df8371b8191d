package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository"
)

type softLockRepository struct {
	db *sql.DB
}

func NewSoftLockRepository(db *sql.DB) repository.SoftLockRepository {
	return &softLockRepository{db: db}
}

// Acquire takes the resource row lock so two users racing for one resource
// are ordered, then upserts the caller's single lock row.
func (r *softLockRepository) Acquire(ctx context.Context, l *domain.SoftLock, now time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked string
		err := tx.QueryRowContext(ctx, `SELECT id FROM resources WHERE id = $1 FOR UPDATE`, l.ResourceID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var holder string
		err = tx.QueryRowContext(ctx,
			`SELECT user_id FROM soft_locks WHERE resource_id = $1 AND user_id <> $2 AND expires_at > $3 LIMIT 1`,
			l.ResourceID, l.UserID, now).Scan(&holder)
		if err == nil {
			return domain.ErrResourceHeld
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		query := `INSERT INTO soft_locks (user_id, resource_id, expires_at, created_at) VALUES ($1, $2, $3, $4)
		          ON CONFLICT (user_id) DO UPDATE
		          SET resource_id = EXCLUDED.resource_id, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`
		_, err = tx.ExecContext(ctx, query, l.UserID, l.ResourceID, l.ExpiresAt, l.CreatedAt)
		return err
	})
}

func (r *softLockRepository) GetByUser(ctx context.Context, userID string) (*domain.SoftLock, error) {
	l := &domain.SoftLock{}
	err := r.db.QueryRowContext(ctx, `SELECT user_id, resource_id, expires_at, created_at FROM soft_locks WHERE user_id = $1`, userID).
		Scan(&l.UserID, &l.ResourceID, &l.ExpiresAt, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *softLockRepository) GetLiveByResource(ctx context.Context, resourceID string, now time.Time) (*domain.SoftLock, error) {
	l := &domain.SoftLock{}
	query := `SELECT user_id, resource_id, expires_at, created_at FROM soft_locks
	          WHERE resource_id = $1 AND expires_at > $2 ORDER BY expires_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, resourceID, now).Scan(&l.UserID, &l.ResourceID, &l.ExpiresAt, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *softLockRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM soft_locks WHERE user_id = $1`, userID)
	return err
}

func (r *softLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM soft_locks WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
