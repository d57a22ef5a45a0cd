package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type WorkingHourRepository interface {
	List(ctx context.Context) ([]*WorkingHour, error)
	GetByWeekday(ctx context.Context, weekday time.Weekday) (*WorkingHour, error)
	Upsert(ctx context.Context, w *WorkingHour) error
}

type BlockedDateRepository interface {
	// List returns blocked dates on or after from; a zero from lists all.
	List(ctx context.Context, from Date) ([]*BlockedDate, error)
	IsBlocked(ctx context.Context, d Date) (bool, error)
	// Create blocks b.Date. Blocking an already blocked date returns the
	// existing row in b.
	Create(ctx context.Context, b *BlockedDate) error
	Delete(ctx context.Context, id uuid.UUID) error
}
