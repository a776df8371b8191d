package postgres

import (
	"context"
	"database/sql"
	"errors"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/repository"
)

type penaltyRepository struct {
	db *sql.DB
}

func NewPenaltyRepository(db *sql.DB) repository.PenaltyRepository {
	return &penaltyRepository{db: db}
}

const penaltyColumns = `id, booking_id, user_id, resource_id, kind, amount, days_late, status, reason, resolved_at, created_at, updated_at`

// Create relies on UNIQUE (booking_id, kind); a conflicting insert returns no row.
func (r *penaltyRepository) Create(ctx context.Context, p *domain.Penalty) error {
	query := `INSERT INTO penalties (` + penaltyColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          ON CONFLICT (booking_id, kind) DO NOTHING
	          RETURNING id`
	logger.DatabaseCall("INSERT", "penalties", "bookingID", p.BookingID, "kind", p.Kind)

	var id string
	err := r.db.QueryRowContext(ctx, query, p.ID, p.BookingID, p.UserID, p.ResourceID, p.Kind, p.Amount, p.DaysLate,
		p.Status, p.Reason, p.ResolvedAt, p.CreatedAt, p.UpdatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || errorCode(err) == uniqueViolation {
		logger.DatabaseResult("INSERT", 0, nil, "bookingID", p.BookingID, "duplicate", true)
		return domain.ErrDuplicatePenalty
	}
	logger.DatabaseResult("INSERT", 1, err, "penaltyID", id)
	return err
}

func scanPenalty(row rowScanner) (*domain.Penalty, error) {
	var (
		p          domain.Penalty
		resolvedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.ResourceID, &p.Kind, &p.Amount, &p.DaysLate, &p.Status,
		&p.Reason, &resolvedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		p.ResolvedAt = &t
	}
	return &p, nil
}

func (r *penaltyRepository) GetByID(ctx context.Context, id string) (*domain.Penalty, error) {
	p, err := scanPenalty(r.db.QueryRowContext(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func (r *penaltyRepository) Transition(ctx context.Context, p *domain.Penalty, from domain.PenaltyStatus) error {
	query := `UPDATE penalties SET status = $1, reason = $2, resolved_at = $3, updated_at = $4 WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, p.Status, p.Reason, p.ResolvedAt, p.UpdatedAt, p.ID, from)
	if err != nil {
		return err
	}
	return rowsAffectedOr(res, domain.ErrInvalidTransition)
}

func (r *penaltyRepository) ListByUser(ctx context.Context, userID string) ([]domain.Penalty, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *penaltyRepository) ExistsForBooking(ctx context.Context, bookingID string, kind domain.PenaltyKind) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM penalties WHERE booking_id = $1 AND kind = $2)`, bookingID, kind).Scan(&exists)
	return exists, err
}
