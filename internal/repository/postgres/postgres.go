package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"consolerent-backend/internal/repository"
)

const (
	uniqueViolation    = pq.ErrorCode("23505")
	exclusionViolation = pq.ErrorCode("23P01")
)

type Store struct {
	db *sql.DB
	repository.ResourceRepository
	repository.BookingRepository
	repository.SoftLockRepository
	repository.PenaltyRepository
	repository.UserRepository
	repository.RatingRepository
	repository.DiscountRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		ResourceRepository:     NewResourceRepository(db),
		BookingRepository:      NewBookingRepository(db),
		SoftLockRepository:     NewSoftLockRepository(db),
		PenaltyRepository:      NewPenaltyRepository(db),
		UserRepository:         NewUserRepository(db),
		RatingRepository:       NewRatingRepository(db),
		DiscountRepository:     NewDiscountRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

// Set exposes the store through the repository interfaces.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Resources:     s.ResourceRepository,
		Bookings:      s.BookingRepository,
		SoftLocks:     s.SoftLockRepository,
		Penalties:     s.PenaltyRepository,
		Users:         s.UserRepository,
		Ratings:       s.RatingRepository,
		Discounts:     s.DiscountRepository,
		Notifications: s.NotificationRepository,
	}
}

// Ping checks the connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func errorCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// rowsAffectedOr returns notFound when an update touched nothing.
func rowsAffectedOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
