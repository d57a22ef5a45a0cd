package clients

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/db"
)

type trustedClientRepoPG struct{ pool db.Queryable }

func NewTrustedClientRepoPG(pool db.Queryable) TrustedClientRepository {
	return &trustedClientRepoPG{pool: pool}
}

const tcCols = `id, phone, name, notes, created_at`

func scanTrustedClient(row pgx.Row) (*TrustedClient, error) {
	var c TrustedClient
	if err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *trustedClientRepoPG) Create(ctx context.Context, c *TrustedClient) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO trusted_clients (id, phone, name, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		c.ID, c.Phone, c.Name, c.Notes).Scan(&c.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("phone %s is already registered", c.Phone)
		}
		return apperr.Dependency("create trusted client", err)
	}
	return nil
}

func (r *trustedClientRepoPG) Update(ctx context.Context, c *TrustedClient) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE trusted_clients SET phone = $2, name = $3, notes = $4
		WHERE id = $1
		RETURNING created_at`,
		c.ID, c.Phone, c.Name, c.Notes).Scan(&c.CreatedAt)
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err):
		return apperr.NotFound("trusted client not found")
	case db.IsUniqueViolation(err):
		return apperr.Conflict("phone %s is already registered", c.Phone)
	}
	return apperr.Dependency("update trusted client", err)
}

func (r *trustedClientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trusted_clients WHERE id = $1`, id)
	if err != nil {
		return apperr.Dependency("delete trusted client", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("trusted client not found")
	}
	return nil
}

func (r *trustedClientRepoPG) List(ctx context.Context) ([]*TrustedClient, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tcCols+` FROM trusted_clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Dependency("list trusted clients", err)
	}
	defer rows.Close()
	var items []*TrustedClient
	for rows.Next() {
		c, err := scanTrustedClient(rows)
		if err != nil {
			return nil, apperr.Dependency("scan trusted client", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list trusted clients", err)
	}
	return items, nil
}

func (r *trustedClientRepoPG) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM trusted_clients WHERE phone = $1)`, phone).Scan(&exists)
	if err != nil {
		return false, apperr.Dependency("check trusted client", err)
	}
	return exists, nil
}
