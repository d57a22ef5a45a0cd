package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

func newTestService() *Service {
	store := NewMemoryStore()
	svc := NewService(store.WorkingHours(), store.BlockedDates(), time.UTC)
	svc.SetNow(func() time.Time { return time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC) })
	return svc
}

func TestService_SetWorkingHour(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	w := &WorkingHour{Weekday: time.Monday, Start: 540, End: 1140, Active: true}
	if err := svc.SetWorkingHour(ctx, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstID := w.ID

	// Upsert keeps one row per weekday.
	w2 := &WorkingHour{Weekday: time.Monday, Start: 600, End: 1080, Active: true}
	if err := svc.SetWorkingHour(ctx, w2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := svc.ListWorkingHours(ctx)
	if len(items) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(items))
	}
	if items[0].ID != firstID || items[0].Start != 600 {
		t.Errorf("expected updated rule with same id, got %+v", items[0])
	}
}

func TestService_SetWorkingHour_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	tests := []struct {
		name  string
		w     WorkingHour
		field string
	}{
		{"weekday out of range", WorkingHour{Weekday: 7, Start: 540, End: 600, Active: true}, "weekday"},
		{"negative start", WorkingHour{Weekday: 1, Start: -30, End: 600, Active: true}, "start_time"},
		{"start at end of day", WorkingHour{Weekday: 1, Start: 1440, End: 1440, Active: false}, "start_time"},
		{"end past midnight", WorkingHour{Weekday: 1, Start: 540, End: 1470, Active: true}, "end_time"},
		{"end before start", WorkingHour{Weekday: 1, Start: 600, End: 540, Active: true}, "end_time"},
		{"empty active window", WorkingHour{Weekday: 1, Start: 600, End: 600, Active: true}, "end_time"},
		{"start off grid", WorkingHour{Weekday: 1, Start: 545, End: 600, Active: true}, "start_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.w
			err := svc.SetWorkingHour(ctx, &w)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ae.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ae.Field)
			}
		})
	}
}

func TestService_SetWorkingHour_InactiveEmptyWindowAllowed(t *testing.T) {
	svc := newTestService()
	w := &WorkingHour{Weekday: time.Sunday, Active: false}
	if err := svc.SetWorkingHour(context.Background(), w); err != nil {
		t.Errorf("expected closed day to be accepted, got %v", err)
	}
}

func TestService_BlockDate_Idempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d := NewDate(2026, time.March, 9)
	first := &BlockedDate{Date: d}
	if err := svc.BlockDate(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &BlockedDate{Date: d}
	if err := svc.BlockDate(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same row for a repeated block, got %s and %s", first.ID, second.ID)
	}
	items, _ := svc.ListBlockedDates(ctx)
	if len(items) != 1 {
		t.Errorf("expected 1 blocked date, got %d", len(items))
	}
}

func TestService_BlockDate_Validation(t *testing.T) {
	svc := newTestService()
	if err := svc.BlockDate(context.Background(), &BlockedDate{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for missing date, got %v", err)
	}
	long := string(make([]byte, maxReasonLen+1))
	err := svc.BlockDate(context.Background(), &BlockedDate{Date: NewDate(2026, 3, 9), Reason: &long})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for long reason, got %v", err)
	}
}

func TestService_UpcomingBlockedDates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.BlockDate(ctx, &BlockedDate{Date: NewDate(2026, time.February, 20)})
	svc.BlockDate(ctx, &BlockedDate{Date: NewDate(2026, time.March, 1)})
	svc.BlockDate(ctx, &BlockedDate{Date: NewDate(2026, time.March, 20)})

	items, err := svc.UpcomingBlockedDates(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 upcoming dates, got %d", len(items))
	}
	if items[0].Date.String() != "2026-03-01" || items[1].Date.String() != "2026-03-20" {
		t.Errorf("unexpected order: %s, %s", items[0].Date, items[1].Date)
	}
}

func TestService_UnblockDate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := &BlockedDate{Date: NewDate(2026, time.March, 9)}
	svc.BlockDate(ctx, b)
	if err := svc.UnblockDate(ctx, b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.UnblockDate(ctx, b.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestService_Snapshot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.SetWorkingHour(ctx, &WorkingHour{Weekday: time.Monday, Start: 540, End: 780, Active: true})
	monday := NewDate(2026, time.March, 2)
	svc.BlockDate(ctx, &BlockedDate{Date: monday.AddDays(7)})

	snap, err := svc.Snapshot(ctx, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.IsBookable(monday) {
		t.Error("expected Monday bookable")
	}

	blocked, err := svc.Snapshot(ctx, monday.AddDays(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocked.IsBookable(monday.AddDays(7)) {
		t.Error("expected blocked Monday closed")
	}
}

func TestService_OpenWeekdays(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.SetWorkingHour(ctx, &WorkingHour{Weekday: time.Saturday, Start: 540, End: 900, Active: true})
	svc.SetWorkingHour(ctx, &WorkingHour{Weekday: time.Monday, Start: 540, End: 1140, Active: true})
	svc.SetWorkingHour(ctx, &WorkingHour{Weekday: time.Sunday, Active: false})

	days, err := svc.OpenWeekdays(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 2 || days[0] != time.Monday || days[1] != time.Saturday {
		t.Errorf("unexpected open days %v", days)
	}
}
