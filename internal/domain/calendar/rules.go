package calendar

import "time"

// Snapshot is the read-only calendar configuration consulted for one call.
// Callers load it explicitly and pass it in; nothing here reads shared state.
type Snapshot struct {
	Rules   []WorkingHour
	Blocked []Date
}

// Rule returns the active working-hour rule for weekday, if any.
func (s Snapshot) Rule(weekday time.Weekday) (WorkingHour, bool) {
	for _, r := range s.Rules {
		if r.Weekday == weekday && r.Active && r.Start < r.End {
			return r, true
		}
	}
	return WorkingHour{}, false
}

// IsBlocked reports whether d is listed as a blocked date.
func (s Snapshot) IsBlocked(d Date) bool {
	for _, b := range s.Blocked {
		if b == d {
			return true
		}
	}
	return false
}

// IsBookable reports whether d's weekday has an active rule and d is not
// blocked. A weekday without a rule is closed.
func (s Snapshot) IsBookable(d Date) bool {
	if d.IsZero() {
		return false
	}
	if _, ok := s.Rule(d.Weekday()); !ok {
		return false
	}
	return !s.IsBlocked(d)
}

// Window returns the working window for d when d is bookable.
func (s Snapshot) Window(d Date) (Window, bool) {
	if !s.IsBookable(d) {
		return Window{}, false
	}
	r, _ := s.Rule(d.Weekday())
	return r.Window(), true
}

// OpenWeekdays lists the weekdays with an active rule in ascending order.
func (s Snapshot) OpenWeekdays() []time.Weekday {
	var days []time.Weekday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if _, ok := s.Rule(wd); ok {
			days = append(days, wd)
		}
	}
	return days
}
