package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

// MemoryStore keeps working hours and blocked dates in process. It backs the
// memory storage mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	hours   map[time.Weekday]*WorkingHour
	blocked map[uuid.UUID]*BlockedDate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hours:   make(map[time.Weekday]*WorkingHour),
		blocked: make(map[uuid.UUID]*BlockedDate),
	}
}

// WorkingHours exposes the store as a WorkingHourRepository.
func (m *MemoryStore) WorkingHours() WorkingHourRepository { return memoryHours{m} }

// BlockedDates exposes the store as a BlockedDateRepository.
func (m *MemoryStore) BlockedDates() BlockedDateRepository { return memoryBlocked{m} }

type memoryHours struct{ m *MemoryStore }

func (r memoryHours) List(_ context.Context) ([]*WorkingHour, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	items := make([]*WorkingHour, 0, len(r.m.hours))
	for _, w := range r.m.hours {
		cp := *w
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Weekday < items[j].Weekday })
	return items, nil
}

func (r memoryHours) GetByWeekday(_ context.Context, weekday time.Weekday) (*WorkingHour, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	w, ok := r.m.hours[weekday]
	if !ok {
		return nil, apperr.NotFound("no working hours for %s", weekday)
	}
	cp := *w
	return &cp, nil
}

func (r memoryHours) Upsert(_ context.Context, w *WorkingHour) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.hours[w.Weekday]; ok {
		w.ID = existing.ID
	} else if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.UpdatedAt = time.Now()
	cp := *w
	r.m.hours[w.Weekday] = &cp
	return nil
}

type memoryBlocked struct{ m *MemoryStore }

func (r memoryBlocked) List(_ context.Context, from Date) ([]*BlockedDate, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var items []*BlockedDate
	for _, b := range r.m.blocked {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		cp := *b
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })
	return items, nil
}

func (r memoryBlocked) IsBlocked(_ context.Context, d Date) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, b := range r.m.blocked {
		if b.Date == d {
			return true, nil
		}
	}
	return false, nil
}

func (r memoryBlocked) Create(_ context.Context, b *BlockedDate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.blocked {
		if existing.Date == b.Date {
			*b = *existing
			return nil
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	cp := *b
	r.m.blocked[b.ID] = &cp
	return nil
}

func (r memoryBlocked) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.blocked[id]; !ok {
		return apperr.NotFound("blocked date not found")
	}
	delete(r.m.blocked, id)
	return nil
}
