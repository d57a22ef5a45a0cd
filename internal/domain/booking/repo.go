package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
)

// ReserveCheck inspects the reservations held on the booking's date and
// returns an error to abort the insert.
type ReserveCheck func(held []Reservation) error

// MutateFunc changes a locked appointment in place. Returning an error
// aborts without writing.
type MutateFunc func(a *Appointment) error

type AppointmentRepository interface {
	// Reserve serializes with every other Reserve for a.Date, re-reads the
	// held reservations, runs check and inserts a if check passes. Two held
	// appointments with intersecting intervals never both commit.
	Reserve(ctx context.Context, a *Appointment, check ReserveCheck) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListHeld(ctx context.Context, date calendar.Date) ([]Reservation, error)
	// FindEarliestHeldByPhone returns the held appointment with the earliest
	// date and time for an already normalized phone.
	FindEarliestHeldByPhone(ctx context.Context, phone string) (*Appointment, error)
	// Mutate locks the appointment, applies fn and persists status and notes.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	// Stats counts pending appointments, confirmed ones on today and those
	// created at or after monthStart.
	Stats(ctx context.Context, today calendar.Date, monthStart time.Time) (*Stats, error)
}
