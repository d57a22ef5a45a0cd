package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/platform/outbox"
)

const (
	aggregateAppointment = "appointment"

	EventBooked        = "appointment.booked"
	EventStatusChanged = "appointment.status_changed"
	EventDeleted       = "appointment.deleted"
)

type appointmentEvent struct {
	ID             uuid.UUID          `json:"id"`
	ServiceID      uuid.UUID          `json:"service_id"`
	Date           calendar.Date      `json:"date"`
	Time           calendar.TimeOfDay `json:"time"`
	Status         Status             `json:"status"`
	PreviousStatus Status             `json:"previous_status,omitempty"`
	AutoConfirmed  bool               `json:"auto_confirmed"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newAppointmentEvent(eventType string, a *Appointment, prev Status) (outbox.Event, error) {
	return outbox.NewEvent(aggregateAppointment, a.ID.String(), eventType, appointmentEvent{
		ID:             a.ID,
		ServiceID:      a.ServiceID,
		Date:           a.Date,
		Time:           a.Time,
		Status:         a.Status,
		PreviousStatus: prev,
		AutoConfirmed:  a.AutoConfirmed,
		OccurredAt:     time.Now().UTC(),
	})
}
