package booking

import (
	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
)

// DaySnapshot is everything the resolver needs for one date, read once and
// passed in explicitly.
type DaySnapshot struct {
	Date     calendar.Date
	Calendar calendar.Snapshot
	Held     []Reservation
}

// AvailableSlots returns the grid starts on day.Date where a service of
// durationMinutes fits inside the working window without intersecting any
// held reservation. Closed or blocked dates yield nil.
func AvailableSlots(day DaySnapshot, durationMinutes int) []calendar.TimeOfDay {
	if !day.Calendar.IsBookable(day.Date) {
		return nil
	}
	w, ok := day.Calendar.Window(day.Date)
	if !ok {
		return nil
	}
	candidates := calendar.GenerateSlots(w, durationMinutes)
	if len(day.Held) == 0 {
		return candidates
	}
	free := candidates[:0:0]
	for _, s := range candidates {
		if !overlapsAny(day.Held, s, durationMinutes) {
			free = append(free, s)
		}
	}
	return free
}

func overlapsAny(held []Reservation, start calendar.TimeOfDay, duration int) bool {
	for _, r := range held {
		if r.Overlaps(start, duration) {
			return true
		}
	}
	return false
}

func containsSlot(slots []calendar.TimeOfDay, t calendar.TimeOfDay) bool {
	for _, s := range slots {
		if s == t {
			return true
		}
	}
	return false
}
