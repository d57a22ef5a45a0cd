package clients

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

const (
	MinPhoneLen    = 6
	MaxPhoneLen    = 20
	minPhoneDigits = 6
	maxNameLen     = 100
	maxNotesLen    = 500
)

// ValidatePhone checks the phone as typed (trimmed, 6 to 20 characters) and
// returns its normalized form, which must keep at least six digits.
func ValidatePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(trimmed); n < MinPhoneLen || n > MaxPhoneLen {
		return "", apperr.Validation("phone", "phone must be between %d and %d characters", MinPhoneLen, MaxPhoneLen)
	}
	normalized := NormalizePhone(trimmed)
	if len(normalized) < minPhoneDigits {
		return "", apperr.Validation("phone", "phone must contain at least %d digits", minPhoneDigits)
	}
	return normalized, nil
}

// Registry is the trusted-client list consulted when a booking is placed.
type Registry struct {
	repo TrustedClientRepository
}

func NewRegistry(repo TrustedClientRepository) *Registry {
	return &Registry{repo: repo}
}

// IsTrusted reports whether phone, in any formatting, belongs to a trusted
// client.
func (r *Registry) IsTrusted(ctx context.Context, phone string) (bool, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return false, nil
	}
	return r.repo.ExistsByPhone(ctx, normalized)
}

func (r *Registry) AddClient(ctx context.Context, c *TrustedClient) error {
	if err := prepareClient(c); err != nil {
		return err
	}
	return r.repo.Create(ctx, c)
}

// UpdateClient replaces phone, name and notes of an existing client. A phone
// already held by another client is a conflict.
func (r *Registry) UpdateClient(ctx context.Context, c *TrustedClient) error {
	if err := prepareClient(c); err != nil {
		return err
	}
	return r.repo.Update(ctx, c)
}

func prepareClient(c *TrustedClient) error {
	phone, err := ValidatePhone(c.Phone)
	if err != nil {
		return err
	}
	c.Phone = phone
	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		if utf8.RuneCountInString(name) > maxNameLen {
			return apperr.Validation("name", "name must be at most %d characters", maxNameLen)
		}
		c.Name = &name
		if name == "" {
			c.Name = nil
		}
	}
	if c.Notes != nil && utf8.RuneCountInString(*c.Notes) > maxNotesLen {
		return apperr.Validation("notes", "notes must be at most %d characters", maxNotesLen)
	}
	return nil
}

func (r *Registry) RemoveClient(ctx context.Context, id uuid.UUID) error {
	return r.repo.Delete(ctx, id)
}

func (r *Registry) ListClients(ctx context.Context) ([]*TrustedClient, error) {
	return r.repo.List(ctx)
}
