package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/db"
	"github.com/Carloolivera/barberia-cobran/internal/platform/outbox"
)

type appointmentRepoPG struct {
	pool   db.Pool
	events *outbox.Store
}

// NewAppointmentRepoPG returns the Postgres store. events may be nil, in
// which case no outbox rows are written.
func NewAppointmentRepoPG(pool db.Pool, events *outbox.Store) AppointmentRepository {
	return &appointmentRepoPG{pool: pool, events: events}
}

const apptSelect = `SELECT a.id, a.client_name, a.client_phone, a.service_id, s.name, a.duration_minutes,
	a.appointment_date, a.start_minute, a.status, a.auto_confirmed, a.notes, a.created_at, a.updated_at
	FROM appointments a JOIN services s ON s.id = a.service_id`

const heldStatuses = `('PENDING', 'CONFIRMED')`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var start int
	var status string
	if err := row.Scan(&a.ID, &a.ClientName, &a.ClientPhone, &a.ServiceID, &a.ServiceName, &a.DurationMinutes,
		&date, &start, &status, &a.AutoConfirmed, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Date = calendar.DateOf(date)
	a.Time = calendar.TimeOfDay(start)
	a.Status = Status(status)
	return &a, nil
}

func (r *appointmentRepoPG) emit(ctx context.Context, q db.Queryable, eventType string, a *Appointment, prev Status) error {
	if r.events == nil {
		return nil
	}
	evt, err := newAppointmentEvent(eventType, a, prev)
	if err != nil {
		return err
	}
	if err := r.events.Insert(ctx, q, evt); err != nil {
		return apperr.Dependency("write outbox event", err)
	}
	return nil
}

// lockKey namespaces the advisory lock so it cannot collide with other
// users of pg_advisory_xact_lock.
func lockKey(d calendar.Date) string { return "appointments:" + d.String() }

func (r *appointmentRepoPG) Reserve(ctx context.Context, a *Appointment, check ReserveCheck) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey(a.Date)); err != nil {
			return apperr.Dependency("lock booking date", err)
		}
		held, err := listHeld(ctx, tx, a.Date)
		if err != nil {
			return err
		}
		if err := check(held); err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO appointments (id, client_name, client_phone, service_id, duration_minutes,
				appointment_date, start_minute, status, auto_confirmed, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at`,
			a.ID, a.ClientName, a.ClientPhone, a.ServiceID, a.DurationMinutes,
			a.Date.Time(), int(a.Time), string(a.Status), a.AutoConfirmed, a.Notes,
		).Scan(&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}
		return r.emit(ctx, tx, EventBooked, a, "")
	})
	if err == nil {
		return nil
	}
	// The exclusion constraint backs up the advisory lock.
	if db.IsUniqueViolation(err) {
		return apperr.Conflict(msgSlotUnavailable)
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("service not found")
	}
	return apperr.Dependency("reserve appointment", err)
}

func listHeld(ctx context.Context, q db.Queryable, date calendar.Date) ([]Reservation, error) {
	rows, err := q.Query(ctx, `
		SELECT start_minute, duration_minutes FROM appointments
		WHERE appointment_date = $1 AND status IN `+heldStatuses+`
		ORDER BY start_minute`, date.Time())
	if err != nil {
		return nil, apperr.Dependency("list held appointments", err)
	}
	defer rows.Close()
	var held []Reservation
	for rows.Next() {
		var start, dur int
		if err := rows.Scan(&start, &dur); err != nil {
			return nil, apperr.Dependency("scan held appointment", err)
		}
		held = append(held, Reservation{Start: calendar.TimeOfDay(start), DurationMinutes: dur})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list held appointments", err)
	}
	return held, nil
}

func (r *appointmentRepoPG) ListHeld(ctx context.Context, date calendar.Date) ([]Reservation, error) {
	return listHeld(ctx, r.pool, date)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Dependency("get appointment", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) FindEarliestHeldByPhone(ctx context.Context, phone string) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, apptSelect+`
		WHERE a.client_phone = $1 AND a.status IN `+heldStatuses+`
		ORDER BY a.appointment_date, a.start_minute
		LIMIT 1`, phone))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("no active appointment for this phone")
		}
		return nil, apperr.Dependency("find appointment by phone", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Appointment, error) {
	var out *Appointment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanAppointment(tx.QueryRow(ctx, apptSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
		if err != nil {
			if db.IsNotFound(err) {
				return apperr.NotFound("appointment not found")
			}
			return apperr.Dependency("lock appointment", err)
		}
		prev := a.Status
		if err := fn(a); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			UPDATE appointments SET status = $2, notes = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			a.ID, string(a.Status), a.Notes).Scan(&a.UpdatedAt); err != nil {
			return apperr.Dependency("update appointment", err)
		}
		if a.Status != prev {
			if err := r.emit(ctx, tx, EventStatusChanged, a, prev); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, apperr.Dependency("commit appointment update", err)
	}
	return out, nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		a := Appointment{ID: id}
		var date time.Time
		var start int
		var status string
		err := tx.QueryRow(ctx, `
			DELETE FROM appointments WHERE id = $1
			RETURNING service_id, appointment_date, start_minute, status, auto_confirmed`, id,
		).Scan(&a.ServiceID, &date, &start, &status, &a.AutoConfirmed)
		if err != nil {
			return err
		}
		a.Date = calendar.DateOf(date)
		a.Time = calendar.TimeOfDay(start)
		a.Status = Status(status)
		return r.emit(ctx, tx, EventDeleted, &a, "")
	})
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err):
		return apperr.NotFound("appointment not found")
	case db.IsForeignKeyViolation(err):
		return apperr.Conflict("appointment is still referenced")
	}
	return apperr.Dependency("delete appointment", err)
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, string(f.Status))
		idx++
	}
	if !f.Date.IsZero() {
		where += fmt.Sprintf(` AND a.appointment_date = $%d`, idx)
		args = append(args, f.Date.Time())
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Dependency("count appointments", err)
	}

	query := apptSelect + where + fmt.Sprintf(` ORDER BY a.appointment_date, a.start_minute LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Dependency("list appointments", err)
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, apperr.Dependency("scan appointment", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Dependency("list appointments", err)
	}
	return items, total, nil
}

func (r *appointmentRepoPG) Stats(ctx context.Context, today calendar.Date, monthStart time.Time) (*Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'CONFIRMED' AND appointment_date = $1),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM appointments`, today.Time(), monthStart).Scan(&s.Pending, &s.TodayConfirmed, &s.CreatedInMonth)
	if err != nil {
		return nil, apperr.Dependency("appointment stats", err)
	}
	return &s, nil
}
