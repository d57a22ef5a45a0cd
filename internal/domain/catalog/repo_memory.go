package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

// ReferenceCheck reports whether something still points at a service.
type ReferenceCheck func(ctx context.Context, serviceID uuid.UUID) (bool, error)

// MemoryRepo is the in-process ServiceRepository.
type MemoryRepo struct {
	mu         sync.RWMutex
	items      map[uuid.UUID]*Service
	referenced ReferenceCheck
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[uuid.UUID]*Service)}
}

// SetReferenceCheck installs the check Delete uses in place of a foreign key.
func (r *MemoryRepo) SetReferenceCheck(fn ReferenceCheck) { r.referenced = fn }

func (r *MemoryRepo) Create(_ context.Context, s *Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("service not found")
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepo) Update(_ context.Context, s *Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[s.ID]
	if !ok {
		return apperr.NotFound("service not found")
	}
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = time.Now()
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.referenced != nil {
		used, err := r.referenced(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return apperr.Conflict("service has appointments; deactivate it instead")
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperr.NotFound("service not found")
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepo) List(_ context.Context, activeOnly bool) ([]*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []*Service
	for _, s := range r.items {
		if activeOnly && !s.Active {
			continue
		}
		cp := *s
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}
