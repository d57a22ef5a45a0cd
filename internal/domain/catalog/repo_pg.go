package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/db"
)

type serviceRepoPG struct{ pool db.Queryable }

func NewServiceRepoPG(pool db.Queryable) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

const svcCols = `id, name, duration_minutes, price_cents, active, display_order, created_at, updated_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var price int64
	if err := row.Scan(&s.ID, &s.Name, &s.DurationMinutes, &price, &s.Active, &s.DisplayOrder,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Price = Money(price)
	return &s, nil
}

func (r *serviceRepoPG) Create(ctx context.Context, s *Service) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, duration_minutes, price_cents, active, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.DurationMinutes, int64(s.Price), s.Active, s.DisplayOrder,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return apperr.Dependency("create service", err)
	}
	return nil
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	s, err := scanService(r.pool.QueryRow(ctx, `SELECT `+svcCols+` FROM services WHERE id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("service not found")
		}
		return nil, apperr.Dependency("get service", err)
	}
	return s, nil
}

func (r *serviceRepoPG) Update(ctx context.Context, s *Service) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE services SET name = $2, duration_minutes = $3, price_cents = $4,
			active = $5, display_order = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.DurationMinutes, int64(s.Price), s.Active, s.DisplayOrder,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return apperr.NotFound("service not found")
		}
		return apperr.Dependency("update service", err)
	}
	return nil
}

func (r *serviceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("service has appointments; deactivate it instead")
		}
		return apperr.Dependency("delete service", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("service not found")
	}
	return nil
}

func (r *serviceRepoPG) List(ctx context.Context, activeOnly bool) ([]*Service, error) {
	query := `SELECT ` + svcCols + ` FROM services`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY display_order, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Dependency("list services", err)
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, apperr.Dependency("scan service", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list services", err)
	}
	return items, nil
}
