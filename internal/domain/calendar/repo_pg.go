package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/db"
)

// =========== Working Hour Repository ===========

type workingHourRepoPG struct{ pool db.Queryable }

func NewWorkingHourRepoPG(pool db.Queryable) WorkingHourRepository {
	return &workingHourRepoPG{pool: pool}
}

const whCols = `id, weekday, start_minute, end_minute, active, updated_at`

func scanWorkingHour(row pgx.Row) (*WorkingHour, error) {
	var w WorkingHour
	var weekday, start, end int16
	if err := row.Scan(&w.ID, &weekday, &start, &end, &w.Active, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Weekday = time.Weekday(weekday)
	w.Start = TimeOfDay(start)
	w.End = TimeOfDay(end)
	return &w, nil
}

func (r *workingHourRepoPG) List(ctx context.Context) ([]*WorkingHour, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+whCols+` FROM working_hours ORDER BY weekday`)
	if err != nil {
		return nil, apperr.Dependency("list working hours", err)
	}
	defer rows.Close()
	var items []*WorkingHour
	for rows.Next() {
		w, err := scanWorkingHour(rows)
		if err != nil {
			return nil, apperr.Dependency("scan working hour", err)
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list working hours", err)
	}
	return items, nil
}

func (r *workingHourRepoPG) GetByWeekday(ctx context.Context, weekday time.Weekday) (*WorkingHour, error) {
	w, err := scanWorkingHour(r.pool.QueryRow(ctx,
		`SELECT `+whCols+` FROM working_hours WHERE weekday = $1`, int16(weekday)))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("no working hours for %s", weekday)
		}
		return nil, apperr.Dependency("get working hour", err)
	}
	return w, nil
}

func (r *workingHourRepoPG) Upsert(ctx context.Context, w *WorkingHour) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO working_hours (id, weekday, start_minute, end_minute, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (weekday) DO UPDATE
			SET start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				active = EXCLUDED.active,
				updated_at = NOW()
		RETURNING id, updated_at`,
		w.ID, int16(w.Weekday), int16(w.Start), int16(w.End), w.Active).Scan(&w.ID, &w.UpdatedAt)
	if err != nil {
		return apperr.Dependency("upsert working hour", err)
	}
	return nil
}

// =========== Blocked Date Repository ===========

type blockedDateRepoPG struct{ pool db.Queryable }

func NewBlockedDateRepoPG(pool db.Queryable) BlockedDateRepository {
	return &blockedDateRepoPG{pool: pool}
}

const bdCols = `id, blocked_on, reason, created_at`

func scanBlockedDate(row pgx.Row) (*BlockedDate, error) {
	var b BlockedDate
	var on time.Time
	if err := row.Scan(&b.ID, &on, &b.Reason, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Date = DateOf(on)
	return &b, nil
}

func (r *blockedDateRepoPG) List(ctx context.Context, from Date) ([]*BlockedDate, error) {
	query := `SELECT ` + bdCols + ` FROM blocked_dates`
	var args []interface{}
	if !from.IsZero() {
		query += ` WHERE blocked_on >= $1`
		args = append(args, from.Time())
	}
	query += ` ORDER BY blocked_on`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Dependency("list blocked dates", err)
	}
	defer rows.Close()
	var items []*BlockedDate
	for rows.Next() {
		b, err := scanBlockedDate(rows)
		if err != nil {
			return nil, apperr.Dependency("scan blocked date", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list blocked dates", err)
	}
	return items, nil
}

func (r *blockedDateRepoPG) IsBlocked(ctx context.Context, d Date) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE blocked_on = $1)`, d.Time()).Scan(&blocked)
	if err != nil {
		return false, apperr.Dependency("check blocked date", err)
	}
	return blocked, nil
}

func (r *blockedDateRepoPG) Create(ctx context.Context, b *BlockedDate) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	// The no-op update makes RETURNING yield the existing row on conflict.
	got, err := scanBlockedDate(r.pool.QueryRow(ctx, `
		INSERT INTO blocked_dates (id, blocked_on, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (blocked_on) DO UPDATE SET blocked_on = EXCLUDED.blocked_on
		RETURNING `+bdCols,
		b.ID, b.Date.Time(), b.Reason))
	if err != nil {
		return apperr.Dependency("create blocked date", err)
	}
	*b = *got
	return nil
}

func (r *blockedDateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id)
	if err != nil {
		return apperr.Dependency("delete blocked date", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("blocked date not found")
	}
	return nil
}
