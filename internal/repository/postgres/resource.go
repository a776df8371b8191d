package postgres

import (
	"context"
	"database/sql"
	"errors"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository"
)

type resourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) repository.ResourceRepository {
	return &resourceRepository{db: db}
}

const resourceColumns = `id, name, hourly_price, daily_price, status, created_at, updated_at`

func (r *resourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	if res.Status == "" {
		res.Status = domain.ResourceStatusAvailable
	}
	query := `INSERT INTO resources (` + resourceColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, res.ID, res.Name, res.HourlyPrice, res.DailyPrice, res.Status, res.CreatedAt, res.UpdatedAt)
	return err
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	res := &domain.Resource{}
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&res.ID, &res.Name, &res.HourlyPrice, &res.DailyPrice, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *resourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.HourlyPrice, &res.DailyPrice, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *resourceRepository) UpdateStatus(ctx context.Context, id string, status domain.ResourceStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE resources SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return rowsAffectedOr(res, domain.ErrNotFound)
}
