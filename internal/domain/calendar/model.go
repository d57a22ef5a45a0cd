package calendar

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GridStep is the fixed spacing, in minutes, of every bookable start time.
const GridStep = 30

// MinutesPerDay bounds TimeOfDay values.
const MinutesPerDay = 24 * 60

// Date is a civil calendar date in the business timezone. It is not an
// instant; the zero value is "no date".
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate normalizes y-m-d the way time.Date does.
func NewDate(y int, m time.Month, d int) Date {
	return DateOf(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if len(s) != len("2006-01-02") {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) Year() int { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int { return d.day }
func (d Date) IsZero() bool { return d == Date{} }
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Time returns midnight UTC of d, the representation used for DATE columns.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// In returns the instant at which d starts in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// Display formats d as DD/MM/YYYY.
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.day, int(d.month), d.year)
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a minute-of-day in [0, 1440].
type TimeOfDay int

// ParseTimeOfDay parses a strict 24-hour HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	var h, m int
	for _, c := range s[:2] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
		}
		h = h*10 + int(c-'0')
	}
	for _, c := range s[3:] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
		}
		m = m*10 + int(c-'0')
	}
	if h == 24 && m == 0 {
		return MinutesPerDay, nil
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// OnGrid reports whether t falls on the GridStep grid.
func (t TimeOfDay) OnGrid() bool { return int(t)%GridStep == 0 }

func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Window is a half-open working interval [Start, End).
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// WorkingHour maps to the working_hours table. At most one row per weekday.
type WorkingHour struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	Weekday   time.Weekday `db:"weekday" json:"weekday"`
	Start     TimeOfDay    `db:"start_minute" json:"start_time"`
	End       TimeOfDay    `db:"end_minute" json:"end_time"`
	Active    bool         `db:"active" json:"active"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

func (w *WorkingHour) Window() Window { return Window{Start: w.Start, End: w.End} }

// BlockedDate maps to the blocked_dates table.
type BlockedDate struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Date      Date      `db:"blocked_on" json:"date"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
