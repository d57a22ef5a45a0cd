package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

const maxReasonLen = 200

type Service struct {
	hours   WorkingHourRepository
	blocked BlockedDateRepository
	loc     *time.Location
	now     func() time.Time
}

func NewService(hours WorkingHourRepository, blocked BlockedDateRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{hours: hours, blocked: blocked, loc: loc, now: time.Now}
}

// SetNow overrides the clock used to resolve "today".
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// Today returns the current civil date in the business timezone.
func (s *Service) Today() Date { return Today(s.now(), s.loc) }

// Snapshot loads the configuration that decides whether d is bookable.
func (s *Service) Snapshot(ctx context.Context, d Date) (Snapshot, error) {
	rules, err := s.hours.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Rules: make([]WorkingHour, 0, len(rules))}
	for _, r := range rules {
		snap.Rules = append(snap.Rules, *r)
	}
	blocked, err := s.blocked.IsBlocked(ctx, d)
	if err != nil {
		return Snapshot{}, err
	}
	if blocked {
		snap.Blocked = []Date{d}
	}
	return snap, nil
}

// -- Working hours --

func (s *Service) ListWorkingHours(ctx context.Context) ([]*WorkingHour, error) {
	return s.hours.List(ctx)
}

func (s *Service) SetWorkingHour(ctx context.Context, w *WorkingHour) error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return apperr.Validation("weekday", "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if w.Start < 0 || w.Start >= MinutesPerDay {
		return apperr.Validation("start_time", "start_time must be between 00:00 and 23:59")
	}
	if w.End > MinutesPerDay {
		return apperr.Validation("end_time", "end_time must not be after 24:00")
	}
	if w.Start > w.End {
		return apperr.Validation("end_time", "end_time must not be before start_time")
	}
	if w.Active && w.Start == w.End {
		return apperr.Validation("end_time", "an active day needs start_time before end_time")
	}
	if !w.Start.OnGrid() {
		return apperr.Validation("start_time", "start_time must be aligned to %d minutes", GridStep)
	}
	return s.hours.Upsert(ctx, w)
}

// OpenWeekdays lists weekdays with an active rule.
func (s *Service) OpenWeekdays(ctx context.Context) ([]time.Weekday, error) {
	rules, err := s.hours.List(ctx)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	for _, r := range rules {
		snap.Rules = append(snap.Rules, *r)
	}
	return snap.OpenWeekdays(), nil
}

// -- Blocked dates --

func (s *Service) ListBlockedDates(ctx context.Context) ([]*BlockedDate, error) {
	return s.blocked.List(ctx, Date{})
}

// UpcomingBlockedDates lists blocked dates from today on.
func (s *Service) UpcomingBlockedDates(ctx context.Context) ([]*BlockedDate, error) {
	return s.blocked.List(ctx, s.Today())
}

func (s *Service) BlockDate(ctx context.Context, b *BlockedDate) error {
	if b.Date.IsZero() {
		return apperr.Validation("date", "date is required")
	}
	if b.Reason != nil && len(*b.Reason) > maxReasonLen {
		return apperr.Validation("reason", "reason must be at most %d characters", maxReasonLen)
	}
	return s.blocked.Create(ctx, b)
}

func (s *Service) UnblockDate(ctx context.Context, id uuid.UUID) error {
	return s.blocked.Delete(ctx, id)
}
