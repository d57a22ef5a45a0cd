package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
)

func TestWorkingHourRepoPG_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "weekday", "start_minute", "end_minute", "active", "updated_at"}).
		AddRow(uuid.New(), int16(1), int16(540), int16(1140), true, now).
		AddRow(uuid.New(), int16(6), int16(540), int16(900), true, now)
	mock.ExpectQuery("SELECT id, weekday, start_minute, end_minute, active, updated_at FROM working_hours").
		WillReturnRows(rows)

	repo := NewWorkingHourRepoPG(mock)
	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, time.Monday, items[0].Weekday)
	assert.Equal(t, TimeOfDay(1140), items[0].End)
	assert.Equal(t, time.Saturday, items[1].Weekday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkingHourRepoPG_GetByWeekday_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM working_hours WHERE weekday").
		WithArgs(int16(time.Sunday)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewWorkingHourRepoPG(mock).GetByWeekday(context.Background(), time.Sunday)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkingHourRepoPG_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("INSERT INTO working_hours").
		WithArgs(pgxmock.AnyArg(), int16(time.Monday), int16(540), int16(1140), true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "updated_at"}).AddRow(id, time.Now()))

	w := &WorkingHour{Weekday: time.Monday, Start: 540, End: 1140, Active: true}
	require.NoError(t, NewWorkingHourRepoPG(mock).Upsert(context.Background(), w))
	assert.Equal(t, id, w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkingHourRepoPG_ListDependencyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM working_hours").WillReturnError(errors.New("connection reset"))

	_, err = NewWorkingHourRepoPG(mock).List(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrDependency), "got %v", err)
}

func TestBlockedDateRepoPG_IsBlocked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDate(2026, time.March, 9)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(d.Time()).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	blocked, err := NewBlockedDateRepoPG(mock).IsBlocked(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedDateRepoPG_CreateReturnsExistingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	existing := uuid.New()
	d := NewDate(2026, time.March, 9)
	mock.ExpectQuery("INSERT INTO blocked_dates").
		WithArgs(pgxmock.AnyArg(), d.Time(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "blocked_on", "reason", "created_at"}).
			AddRow(existing, d.Time(), (*string)(nil), time.Now()))

	b := &BlockedDate{Date: d}
	require.NoError(t, NewBlockedDateRepoPG(mock).Create(context.Background(), b))
	assert.Equal(t, existing, b.ID)
	assert.Equal(t, d, b.Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedDateRepoPG_ListFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := NewDate(2026, time.March, 1)
	reason := "Feriado"
	mock.ExpectQuery("WHERE blocked_on >=").
		WithArgs(from.Time()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "blocked_on", "reason", "created_at"}).
			AddRow(uuid.New(), from.AddDays(3).Time(), &reason, time.Now()))

	items, err := NewBlockedDateRepoPG(mock).List(context.Background(), from)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2026-03-04", items[0].Date.String())
	require.NotNil(t, items[0].Reason)
	assert.Equal(t, "Feriado", *items[0].Reason)
}

func TestBlockedDateRepoPG_DeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("DELETE FROM blocked_dates").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewBlockedDateRepoPG(mock).Delete(context.Background(), id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}
