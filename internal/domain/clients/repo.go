package clients

import (
	"context"

	"github.com/google/uuid"
)

type TrustedClientRepository interface {
	// Create fails with a conflict when the phone is already registered.
	Create(ctx context.Context, c *TrustedClient) error
	// Update fails with a conflict when another client holds the phone.
	Update(ctx context.Context, c *TrustedClient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*TrustedClient, error)
	// ExistsByPhone expects an already normalized phone.
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}
