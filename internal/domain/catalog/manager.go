package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

const (
	minNameLen  = 2
	maxNameLen  = 100
	minDuration = 10
	maxDuration = 240
)

// Manager owns the service catalog. It is named apart from Service, the
// entity it manages.
type Manager struct {
	repo ServiceRepository
}

func NewManager(repo ServiceRepository) *Manager {
	return &Manager{repo: repo}
}

func validateService(s *Service) error {
	s.Name = strings.TrimSpace(s.Name)
	if n := utf8.RuneCountInString(s.Name); n < minNameLen || n > maxNameLen {
		return apperr.Validation("name", "name must be between %d and %d characters", minNameLen, maxNameLen)
	}
	if s.DurationMinutes < minDuration || s.DurationMinutes > maxDuration {
		return apperr.Validation("duration_minutes", "duration must be between %d and %d minutes", minDuration, maxDuration)
	}
	if s.Price < 0 {
		return apperr.Validation("price", "price must not be negative")
	}
	if s.DisplayOrder < 0 {
		return apperr.Validation("display_order", "display_order must not be negative")
	}
	return nil
}

func (m *Manager) CreateService(ctx context.Context, s *Service) error {
	if err := validateService(s); err != nil {
		return err
	}
	return m.repo.Create(ctx, s)
}

// GetService returns the service with id regardless of its active flag.
func (m *Manager) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return m.repo.GetByID(ctx, id)
}

func (m *Manager) UpdateService(ctx context.Context, s *Service) error {
	if s.ID == uuid.Nil {
		return apperr.Validation("id", "id is required")
	}
	if err := validateService(s); err != nil {
		return err
	}
	return m.repo.Update(ctx, s)
}

// DeleteService removes a service. Services referenced by appointments are
// refused with a conflict; deactivate those instead.
func (m *Manager) DeleteService(ctx context.Context, id uuid.UUID) error {
	return m.repo.Delete(ctx, id)
}

func (m *Manager) ListServices(ctx context.Context) ([]*Service, error) {
	return m.repo.List(ctx, false)
}

// ListActiveServices returns the bookable catalog.
func (m *Manager) ListActiveServices(ctx context.Context) ([]*Service, error) {
	return m.repo.List(ctx, true)
}
