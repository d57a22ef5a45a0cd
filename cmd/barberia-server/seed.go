package main

import (
	"context"
	"strings"
	"time"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/domain/catalog"
)

var defaultServices = []catalog.Service{
	{Name: "Corte de pelo", DurationMinutes: 30, Price: 3500, DisplayOrder: 1},
	{Name: "Corte + Barba", DurationMinutes: 45, Price: 5000, DisplayOrder: 2},
	{Name: "Barba", DurationMinutes: 20, Price: 2000, DisplayOrder: 3},
	{Name: "Corte niños", DurationMinutes: 25, Price: 2500, DisplayOrder: 4},
}

func defaultWorkingHours() []calendar.WorkingHour {
	var hours []calendar.WorkingHour
	for d := time.Monday; d <= time.Friday; d++ {
		hours = append(hours, calendar.WorkingHour{Weekday: d, Start: 9 * 60, End: 19 * 60, Active: true})
	}
	return append(hours, calendar.WorkingHour{Weekday: time.Saturday, Start: 9 * 60, End: 15 * 60, Active: true})
}

type seedResult struct {
	Services     int
	WorkingHours int
}

// seedDefaults creates the default catalog and weekly hours. Services are
// matched by name and weekdays that already have a rule are left alone, so
// running it twice changes nothing.
func seedDefaults(ctx context.Context, mgr *catalog.Manager, cal *calendar.Service) (seedResult, error) {
	var res seedResult

	existing, err := mgr.ListServices(ctx)
	if err != nil {
		return res, err
	}
	have := make(map[string]bool, len(existing))
	for _, s := range existing {
		have[strings.ToLower(s.Name)] = true
	}
	for _, def := range defaultServices {
		if have[strings.ToLower(def.Name)] {
			continue
		}
		s := def
		s.Active = true
		if err := mgr.CreateService(ctx, &s); err != nil {
			return res, err
		}
		res.Services++
	}

	rules, err := cal.ListWorkingHours(ctx)
	if err != nil {
		return res, err
	}
	configured := make(map[time.Weekday]bool, len(rules))
	for _, r := range rules {
		configured[r.Weekday] = true
	}
	for _, w := range defaultWorkingHours() {
		if configured[w.Weekday] {
			continue
		}
		w := w
		if err := cal.SetWorkingHour(ctx, &w); err != nil {
			return res, err
		}
		res.WorkingHours++
	}
	return res, nil
}
