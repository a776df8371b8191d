package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, resource_id, user_id, start_at, end_at, status, price, discount_id, cancel_reason, outcome, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b           domain.Booking
		discountID  sql.NullString
		outcome     []byte
		completedAt sql.NullTime
	)
	err := row.Scan(&b.ID, &b.ResourceID, &b.UserID, &b.Window.Start, &b.Window.End, &b.Status, &b.Price,
		&discountID, &b.CancelReason, &outcome, &completedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Window.Start = b.Window.Start.UTC()
	b.Window.End = b.Window.End.UTC()
	if discountID.Valid {
		b.DiscountID = &discountID.String
	}
	if len(outcome) > 0 {
		b.Outcome = &domain.Outcome{}
		if err := json.Unmarshal(outcome, b.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome of booking %s: %w", b.ID, err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		b.CompletedAt = &t
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// encodeOutcome returns nil for SQL NULL, else the JSON text.
func encodeOutcome(o *domain.Outcome) (any, error) {
	if o == nil {
		return nil, nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// CreateIfAvailable serializes writers on the resource row, re-checks overlap and
// inserts. The bookings_no_overlap exclusion constraint backs the same rule.
func (r *bookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.CreateIfAvailable", "resourceID", b.ResourceID, "window", b.Window.String())

	outcome, err := encodeOutcome(b.Outcome)
	if err != nil {
		return err
	}

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked string
		lockQuery := `SELECT id FROM resources WHERE id = $1 FOR UPDATE`
		logger.DatabaseCall("SELECT FOR UPDATE", "resources", "resourceID", b.ResourceID)
		if err := tx.QueryRowContext(ctx, lockQuery, b.ResourceID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}

		overlapQuery := `SELECT ` + bookingColumns + ` FROM bookings
		          WHERE resource_id = $1 AND status IN ('pending', 'confirmed')
		            AND start_at < $3 AND end_at > $2
		          ORDER BY start_at`
		rows, err := tx.QueryContext(ctx, overlapQuery, b.ResourceID, b.Window.Start, b.Window.End)
		if err != nil {
			return err
		}
		conflicts, err := scanBookings(rows)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &domain.SlotUnavailableError{ResourceID: b.ResourceID, Requested: b.Window, Conflicts: conflicts}
		}

		insert := `INSERT INTO bookings (` + bookingColumns + `)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		_, err = tx.ExecContext(ctx, insert, b.ID, b.ResourceID, b.UserID, b.Window.Start, b.Window.End, b.Status, b.Price,
			b.DiscountID, b.CancelReason, outcome, b.CompletedAt, b.CreatedAt, b.UpdatedAt)
		if errorCode(err) == exclusionViolation {
			return &domain.SlotUnavailableError{ResourceID: b.ResourceID, Requested: b.Window}
		}
		return err
	})

	logger.DatabaseResult("INSERT", 1, ignoreExpected(err), "bookingID", b.ID)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.CreateIfAvailable", err, "resourceID", b.ResourceID)
		return err
	}
	logger.ExitMethod("bookingRepository.CreateIfAvailable", "bookingID", b.ID)
	return nil
}

// ignoreExpected hides conflicts from the database error log; they are normal outcomes.
func ignoreExpected(err error) error {
	if errors.Is(err, domain.ErrSlotUnavailable) || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

func (r *bookingRepository) Transition(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	outcome, err := encodeOutcome(b.Outcome)
	if err != nil {
		return err
	}
	query := `UPDATE bookings SET status = $1, cancel_reason = $2, outcome = $3, completed_at = $4, updated_at = $5
	          WHERE id = $6 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, b.Status, b.CancelReason, outcome, b.CompletedAt, b.UpdatedAt, b.ID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidTransition
}

func (r *bookingRepository) list(ctx context.Context, where string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (r *bookingRepository) ListActiveByResource(ctx context.Context, resourceID string) ([]domain.Booking, error) {
	return r.list(ctx, `resource_id = $1 AND status IN ('pending', 'confirmed') ORDER BY start_at`, resourceID)
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.list(ctx, `user_id = $1 ORDER BY start_at`, userID)
}

func (r *bookingRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, `status = 'confirmed' AND end_at < $1 ORDER BY end_at`, now)
}

func (r *bookingRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	return r.list(ctx, `status = 'confirmed' AND end_at >= $1 AND end_at < $2 ORDER BY end_at`, from, to)
}

func (r *bookingRepository) ListRecentCompletedByUser(ctx context.Context, userID string, limit int) ([]domain.Booking, error) {
	return r.list(ctx, `user_id = $1 AND status = 'completed' ORDER BY completed_at DESC, id LIMIT $2`, userID, limit)
}

func (r *bookingRepository) CountCompletedByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings WHERE user_id = $1 AND status = 'completed'`, userID).Scan(&count)
	return count, err
}
