package calendar

// GenerateSlots returns every grid-aligned start t in w with t+duration <= w.End,
// in ascending order. The grid starts at w.Start and advances by GridStep
// regardless of duration.
func GenerateSlots(w Window, duration int) []TimeOfDay {
	if duration <= 0 || w.End <= w.Start {
		return nil
	}
	var slots []TimeOfDay
	for t := w.Start; t.Add(duration) <= w.End; t = t.Add(GridStep) {
		slots = append(slots, t)
	}
	return slots
}
