package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

// MemoryRepo keeps appointments in process. Reserve calls for the same date
// are serialized by a per-date mutex, so check-then-insert is atomic within
// one process.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Appointment

	locksMu sync.Mutex
	dayLock map[calendar.Date]*dateLock
}

// dateLock is dropped from dayLock once no caller holds or waits on it.
type dateLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:   make(map[uuid.UUID]*Appointment),
		dayLock: make(map[calendar.Date]*dateLock),
	}
}

func (r *MemoryRepo) lockDate(d calendar.Date) func() {
	r.locksMu.Lock()
	l, ok := r.dayLock[d]
	if !ok {
		l = &dateLock{}
		r.dayLock[d] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.dayLock, d)
		}
		r.locksMu.Unlock()
	}
}

func (r *MemoryRepo) lockedDates() int {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	return len(r.dayLock)
}

func (r *MemoryRepo) Reserve(ctx context.Context, a *Appointment, check ReserveCheck) error {
	unlock := r.lockDate(a.Date)
	defer unlock()

	held, err := r.ListHeld(ctx, a.Date)
	if err != nil {
		return err
	}
	if err := check(held); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepo) ListHeld(_ context.Context, date calendar.Date) ([]Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var held []Reservation
	for _, a := range r.items {
		if a.Date == date && a.Status.Holds() {
			held = append(held, a.Reservation())
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].Start < held[j].Start })
	return held, nil
}

func (r *MemoryRepo) FindEarliestHeldByPhone(_ context.Context, phone string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Appointment
	for _, a := range r.items {
		if a.ClientPhone != phone || !a.Status.Holds() {
			continue
		}
		if best == nil || earlier(a, best) {
			best = a
		}
	}
	if best == nil {
		return nil, apperr.NotFound("no active appointment for this phone")
	}
	cp := *best
	return &cp, nil
}

func earlier(a, b *Appointment) bool {
	if a.Date != b.Date {
		return a.Date.Before(b.Date)
	}
	return a.Time < b.Time
}

func (r *MemoryRepo) Mutate(_ context.Context, id uuid.UUID, fn MutateFunc) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now()
	stored.Status = cp.Status
	stored.Notes = cp.Notes
	stored.UpdatedAt = cp.UpdatedAt
	out := *stored
	return &out, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperr.NotFound("appointment not found")
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*Appointment
	for _, a := range r.items {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.Date.IsZero() && a.Date != f.Date {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return earlier(matched[i], matched[j]) })

	total := len(matched)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepo) Stats(_ context.Context, today calendar.Date, monthStart time.Time) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Stats
	for _, a := range r.items {
		if a.Status == StatusPending {
			s.Pending++
		}
		if a.Status == StatusConfirmed && a.Date == today {
			s.TodayConfirmed++
		}
		if !a.CreatedAt.Before(monthStart) {
			s.CreatedInMonth++
		}
	}
	return &s, nil
}

// ReferencesService reports whether any appointment points at serviceID. It
// stands in for the foreign key the Postgres schema enforces.
func (r *MemoryRepo) ReferencesService(_ context.Context, serviceID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}
