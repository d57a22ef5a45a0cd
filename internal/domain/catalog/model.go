package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Money is an amount in minor currency units (cents).
type Money int64

// String renders m with two decimals, e.g. 3500 -> "35.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Service maps to the services table.
type Service struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Price           Money     `db:"price_cents" json:"price"`
	Active          bool      `db:"active" json:"active"`
	DisplayOrder    int       `db:"display_order" json:"display_order"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
