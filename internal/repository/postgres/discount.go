package postgres

import (
	"context"
	"database/sql"
	"time"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository"
)

type discountRepository struct {
	db *sql.DB
}

func NewDiscountRepository(db *sql.DB) repository.DiscountRepository {
	return &discountRepository{db: db}
}

const discountColumns = `id, name, resource_id, type, value, starts_at, ends_at, min_hours, max_usage, used_count, active`

func (r *discountRepository) Create(ctx context.Context, d *domain.Discount) error {
	query := `INSERT INTO discounts (` + discountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.Name, d.ResourceID, d.Type, d.Value, d.StartsAt, d.EndsAt,
		d.MinHours, d.MaxUsage, d.UsedCount, d.Active)
	return err
}

func (r *discountRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts
	          WHERE active AND starts_at <= $1 AND ends_at >= $1
	            AND (max_usage IS NULL OR used_count < max_usage)
	          ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Discount
	for rows.Next() {
		var (
			d          domain.Discount
			resourceID sql.NullString
			maxUsage   sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Name, &resourceID, &d.Type, &d.Value, &d.StartsAt, &d.EndsAt,
			&d.MinHours, &maxUsage, &d.UsedCount, &d.Active); err != nil {
			return nil, err
		}
		if resourceID.Valid {
			d.ResourceID = &resourceID.String
		}
		if maxUsage.Valid {
			m := int(maxUsage.Int64)
			d.MaxUsage = &m
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// IncrementUsage is a single conditional update so concurrent redemptions cannot exceed the cap.
func (r *discountRepository) IncrementUsage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE discounts SET used_count = used_count + 1 WHERE id = $1 AND (max_usage IS NULL OR used_count < max_usage)`, id)
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
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM discounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrDiscountExhausted
}

