package booking

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/domain/catalog"
	"github.com/Carloolivera/barberia-cobran/internal/domain/clients"
	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

const (
	DefaultHorizonDays = 30

	msgSlotUnavailable = "slot unavailable"
	minClientNameLen   = 2
	maxClientNameLen   = 100
	maxNotesLen        = 500
)

// ServiceCatalog resolves the service being booked.
type ServiceCatalog interface {
	GetService(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// CalendarSource loads working hours and blocked dates for one date.
type CalendarSource interface {
	Snapshot(ctx context.Context, d calendar.Date) (calendar.Snapshot, error)
}

// TrustedRegistry decides auto-confirmation.
type TrustedRegistry interface {
	IsTrusted(ctx context.Context, phone string) (bool, error)
}

type Options struct {
	Location    *time.Location
	HorizonDays int
	Logger      zerolog.Logger
	Metrics     *Metrics
	Tracer      trace.Tracer
}

// Service is the booking engine: availability, the booking transaction and
// the appointment lifecycle.
type Service struct {
	repo     AppointmentRepository
	catalog  ServiceCatalog
	calendar CalendarSource
	trusted  TrustedRegistry

	loc     *time.Location
	horizon int
	now     func() time.Time
	logger  zerolog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

func NewService(repo AppointmentRepository, cat ServiceCatalog, cal CalendarSource, trusted TrustedRegistry, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/Carloolivera/barberia-cobran/internal/domain/booking")
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		calendar: cal,
		trusted:  trusted,
		loc:      opts.Location,
		horizon:  opts.HorizonDays,
		now:      time.Now,
		logger:   opts.Logger.With().Str("component", "booking").Logger(),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
}

// SetNow overrides the clock used for the booking horizon and stats.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

func (s *Service) today() calendar.Date { return calendar.Today(s.now(), s.loc) }

// -- Availability --

// ListAvailableSlots returns the free start times for serviceID on date.
// Unknown or inactive services, closed weekdays and blocked dates all yield
// an empty list; only storage failures are errors.
func (s *Service) ListAvailableSlots(ctx context.Context, serviceID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	ctx, span := s.tracer.Start(ctx, "booking.ListAvailableSlots", trace.WithAttributes(
		attribute.String("service_id", serviceID.String()),
		attribute.String("date", date.String()),
	))
	defer span.End()

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.metrics.ObserveAvailability(false, 0)
			return []calendar.TimeOfDay{}, nil
		}
		return nil, recordSpanError(span, err)
	}
	if !svc.Active {
		s.metrics.ObserveAvailability(false, 0)
		return []calendar.TimeOfDay{}, nil
	}

	snap, err := s.calendar.Snapshot(ctx, date)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if !snap.IsBookable(date) {
		s.metrics.ObserveAvailability(false, 0)
		return []calendar.TimeOfDay{}, nil
	}

	held, err := s.repo.ListHeld(ctx, date)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	slots := AvailableSlots(DaySnapshot{Date: date, Calendar: snap, Held: held}, svc.DurationMinutes)
	if slots == nil {
		slots = []calendar.TimeOfDay{}
	}
	s.metrics.ObserveAvailability(true, len(slots))
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

// -- Booking --

// BookRequest carries the raw wire values of a self-service booking.
type BookRequest struct {
	ServiceID   string `json:"service_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
}

type bookInput struct {
	serviceID uuid.UUID
	date      calendar.Date
	time      calendar.TimeOfDay
	name      string
	phone     string
}

// validateBook checks the request shape. It reads no shared state.
func (s *Service) validateBook(req BookRequest) (bookInput, error) {
	var in bookInput
	var err error

	if in.serviceID, err = uuid.Parse(strings.TrimSpace(req.ServiceID)); err != nil {
		return in, apperr.Validation("service_id", "service_id must be a valid id")
	}
	if in.date, err = calendar.ParseDate(strings.TrimSpace(req.Date)); err != nil {
		return in, apperr.Validation("date", "date must be formatted YYYY-MM-DD")
	}
	today := s.today()
	first, last := today.AddDays(1), today.AddDays(s.horizon)
	if in.date.Before(first) || in.date.After(last) {
		return in, apperr.Validation("date", "date must be between %s and %s", first, last)
	}
	if in.time, err = calendar.ParseTimeOfDay(strings.TrimSpace(req.Time)); err != nil {
		return in, apperr.Validation("time", "time must be formatted HH:MM")
	}
	if in.time >= calendar.MinutesPerDay {
		return in, apperr.Validation("time", "time must be before 24:00")
	}
	if !in.time.OnGrid() {
		return in, apperr.Validation("time", "time must be aligned to %d minutes", calendar.GridStep)
	}
	in.name = strings.TrimSpace(req.ClientName)
	if n := utf8.RuneCountInString(in.name); n < minClientNameLen || n > maxClientNameLen {
		return in, apperr.Validation("client_name", "name must be between %d and %d characters", minClientNameLen, maxClientNameLen)
	}
	phone, err := clients.ValidatePhone(req.ClientPhone)
	if err != nil {
		return in, apperr.Validation("client_phone", "%s", err.Error())
	}
	in.phone = phone
	return in, nil
}

// Book reserves the requested slot. A slot that is no longer free, including
// one taken by a concurrent duplicate submission, fails with a conflict.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book")
	defer span.End()

	conf, err := s.book(ctx, req)
	s.metrics.ObserveBooking(bookingOutcome(conf, err))
	if err != nil {
		recordSpanError(span, err)
		s.logger.Info().Err(err).Str("kind", apperr.KindOf(err).String()).
			Str("service_id", req.ServiceID).Str("date", req.Date).Str("time", req.Time).
			Msg("booking rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("appointment_id", conf.ID.String()), attribute.String("status", string(conf.Status)))
	return conf, nil
}

func (s *Service) book(ctx context.Context, req BookRequest) (*Confirmation, error) {
	in, err := s.validateBook(req)
	if err != nil {
		return nil, err
	}

	svc, err := s.catalog.GetService(ctx, in.serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, apperr.NotFound("service not found")
	}

	// Second validation pass: configuration is re-read right before the
	// reservation section.
	snap, err := s.calendar.Snapshot(ctx, in.date)
	if err != nil {
		return nil, err
	}
	trusted, err := s.trusted.IsTrusted(ctx, in.phone)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		ClientName:      in.name,
		ClientPhone:     in.phone,
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		DurationMinutes: svc.DurationMinutes,
		Date:            in.date,
		Time:            in.time,
		Status:          StatusPending,
		AutoConfirmed:   trusted,
	}
	if trusted {
		a.Status = StatusConfirmed
	}

	started := time.Now()
	err = s.repo.Reserve(ctx, a, func(held []Reservation) error {
		free := AvailableSlots(DaySnapshot{Date: in.date, Calendar: snap, Held: held}, svc.DurationMinutes)
		if !containsSlot(free, in.time) {
			return apperr.Conflict(msgSlotUnavailable)
		}
		return nil
	})
	s.metrics.ObserveReserve(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("date", a.Date.String()).
		Str("time", a.Time.String()).
		Str("status", string(a.Status)).
		Bool("auto_confirmed", a.AutoConfirmed).
		Msg("appointment booked")
	return newConfirmation(a), nil
}

func bookingOutcome(c *Confirmation, err error) string {
	if err == nil {
		if c.Status == StatusConfirmed {
			return "confirmed"
		}
		return "pending"
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "invalid"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindNotFound:
		return "not_found"
	}
	return "error"
}

// -- Self-service --

// FindActiveByPhone returns the client's earliest PENDING or CONFIRMED
// appointment.
func (s *Service) FindActiveByPhone(ctx context.Context, phone string) (*Appointment, error) {
	normalized, err := clients.ValidatePhone(phone)
	if err != nil {
		return nil, err
	}
	return s.repo.FindEarliestHeldByPhone(ctx, normalized)
}

// Cancel lets a client cancel their own appointment. The phone must match
// the one the appointment was booked with.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, phone string) (*Appointment, error) {
	normalized := clients.NormalizePhone(phone)
	if normalized == "" {
		return nil, apperr.Validation("phone", "phone is required")
	}
	return s.transition(ctx, id, ActionCancel, func(a *Appointment) error {
		if a.ClientPhone != normalized {
			return apperr.Authorization("phone does not match this appointment")
		}
		return nil
	})
}

// -- Admin lifecycle --

func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionApprove, nil)
}

// Reject records reason, when given, as the appointment notes.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxNotesLen {
		return nil, apperr.Validation("reason", "reason must be at most %d characters", maxNotesLen)
	}
	return s.transition(ctx, id, ActionReject, func(a *Appointment) error {
		if reason != "" {
			a.Notes = &reason
		}
		return nil
	})
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionComplete, nil)
}

// AdminCancel cancels without the phone ownership check.
func (s *Service) AdminCancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionCancel, nil)
}

// transition applies action under the appointment's row lock. guard runs
// first and may veto; the status only changes when the transition table has
// an edge from the current status.
func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action, guard MutateFunc) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Transition", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("action", string(action)),
	))
	defer span.End()

	var from Status
	a, err := s.repo.Mutate(ctx, id, func(a *Appointment) error {
		if guard != nil {
			if err := guard(a); err != nil {
				return err
			}
		}
		next, ok := Next(a.Status, action)
		if !ok {
			return apperr.Conflict("cannot %s an appointment that is %s", action, a.Status)
		}
		from = a.Status
		a.Status = next
		return nil
	})
	if err != nil {
		s.metrics.ObserveTransition(action, apperr.KindOf(err).String())
		return nil, recordSpanError(span, err)
	}
	s.metrics.ObserveTransition(action, "ok")
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("action", string(action)).
		Str("from", string(from)).
		Str("to", string(a.Status)).
		Msg("appointment transition")
	return a, nil
}

// Annotate replaces the notes in any state. An empty note clears them.
func (s *Service) Annotate(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxNotesLen {
		return nil, apperr.Validation("notes", "notes must be at most %d characters", maxNotesLen)
	}
	return s.repo.Mutate(ctx, id, func(a *Appointment) error {
		if note == "" {
			a.Notes = nil
		} else {
			a.Notes = &note
		}
		return nil
	})
}

// Delete hard-deletes an appointment in any state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Stats reports the dashboard counters relative to the business timezone.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().In(s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return s.repo.Stats(ctx, calendar.DateOf(now), monthStart)
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
