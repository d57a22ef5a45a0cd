package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus accepts the canonical upper-case names.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Holds reports whether the status occupies calendar space.
func (s Status) Holds() bool { return s == StatusPending || s == StatusConfirmed }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Action is a lifecycle transition request.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var transitions = map[Action]struct {
	from []Status
	to   Status
}{
	ActionApprove:  {from: []Status{StatusPending}, to: StatusConfirmed},
	ActionReject:   {from: []Status{StatusPending}, to: StatusRejected},
	ActionComplete: {from: []Status{StatusConfirmed}, to: StatusCompleted},
	ActionCancel:   {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled},
}

// Next returns the status reached by applying a to s, or false when the
// transition table has no such edge.
func Next(s Status, a Action) (Status, bool) {
	t, ok := transitions[a]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if from == s {
			return t.to, true
		}
	}
	return "", false
}

// Appointment maps to the appointments table. ServiceName is joined on read.
type Appointment struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	ClientName      string             `db:"client_name" json:"client_name"`
	ClientPhone     string             `db:"client_phone" json:"client_phone"`
	ServiceID       uuid.UUID          `db:"service_id" json:"service_id"`
	ServiceName     string             `db:"-" json:"service_name"`
	DurationMinutes int                `db:"duration_minutes" json:"duration_minutes"`
	Date            calendar.Date      `db:"appointment_date" json:"date"`
	Time            calendar.TimeOfDay `db:"start_minute" json:"time"`
	Status          Status             `db:"status" json:"status"`
	AutoConfirmed   bool               `db:"auto_confirmed" json:"auto_confirmed"`
	Notes           *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// Reservation returns the interval a held appointment occupies.
func (a *Appointment) Reservation() Reservation {
	return Reservation{Start: a.Time, DurationMinutes: a.DurationMinutes}
}

// Reservation is the occupied interval [Start, Start+DurationMinutes) of a
// held appointment.
type Reservation struct {
	Start           calendar.TimeOfDay
	DurationMinutes int
}

func (r Reservation) End() calendar.TimeOfDay { return r.Start.Add(r.DurationMinutes) }

// Overlaps reports whether [start, start+duration) intersects r.
func (r Reservation) Overlaps(start calendar.TimeOfDay, duration int) bool {
	return start < r.End() && r.Start < start.Add(duration)
}

// Confirmation is the display-ready result of a successful booking.
type Confirmation struct {
	ID          uuid.UUID `json:"id"`
	ClientName  string    `json:"client_name"`
	ServiceName string    `json:"service_name"`
	Date        string    `json:"appointment_date"`
	Time        string    `json:"appointment_time"`
	Status      Status    `json:"status"`
}

func newConfirmation(a *Appointment) *Confirmation {
	return &Confirmation{
		ID:          a.ID,
		ClientName:  a.ClientName,
		ServiceName: a.ServiceName,
		Date:        a.Date.Display(),
		Time:        a.Time.String(),
		Status:      a.Status,
	}
}

// ListFilter narrows the admin appointment listing. Zero values match all.
type ListFilter struct {
	Status Status
	Date   calendar.Date
}

// Stats feeds the back-office dashboard.
type Stats struct {
	Pending        int `json:"pending"`
	TodayConfirmed int `json:"today_confirmed"`
	CreatedInMonth int `json:"total_this_month"`
}
