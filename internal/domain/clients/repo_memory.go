package clients

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*TrustedClient
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[uuid.UUID]*TrustedClient)}
}

func (r *MemoryRepo) Create(_ context.Context, c *TrustedClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Phone == c.Phone {
			return apperr.Conflict("phone %s is already registered", c.Phone)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, c *TrustedClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[c.ID]
	if !ok {
		return apperr.NotFound("trusted client not found")
	}
	for id, existing := range r.items {
		if id != c.ID && existing.Phone == c.Phone {
			return apperr.Conflict("phone %s is already registered", c.Phone)
		}
	}
	c.CreatedAt = current.CreatedAt
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperr.NotFound("trusted client not found")
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepo) List(_ context.Context) ([]*TrustedClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*TrustedClient, 0, len(r.items))
	for _, c := range r.items {
		cp := *c
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}
