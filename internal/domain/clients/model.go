package clients

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrustedClient maps to the trusted_clients table. Bookings from a trusted
// phone skip manual approval.
type TrustedClient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Phone     string    `db:"phone" json:"phone"`
	Name      *string   `db:"name" json:"name,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NormalizePhone keeps only the ASCII digits of raw, so "+54 9 221-555-000" and
// "549221555000" compare equal.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
