// Package date provides a day-granularity date value and a seconds-based
// time-of-day, the two calendar units the ledger engine works in.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

// Format is the wire format for dates, ISO-8601.
const Format = "2006-01-02"

// Date represents a calendar date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
// Out-of-range components roll over the way time.Date does.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date.
func Today() Date { return New(time.Now().Date()) }

// Parse parses an ISO-8601 date string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Format, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", s, Format, err)
	}
	return New(t.Date()), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// literals.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns the canonical midnight-UTC representation of the date.
func (d Date) Time() time.Time { return d.time() }

// FromTime truncates a time.Time to its calendar date.
func FromTime(t time.Time) Date { return New(t.Date()) }

func (d Date) Year() int          { return d.y }
func (d Date) Month() time.Month  { return d.m }
func (d Date) Day() int           { return d.d }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) String() string     { return d.time().Format(Format) }
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }
func (d Date) After(x Date) bool  { return d.time().After(x.time()) }

// Weekday returns the weekday with Monday=0 .. Sunday=6, the convention
// recurring rules are declared in.
func (d Date) Weekday() int {
	return (int(d.time().Weekday()) + 6) % 7
}

// Add returns the date i days later (or earlier for negative i).
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// Sub returns the number of days from x to d.
func (d Date) Sub(x Date) int {
	return int(d.time().Sub(x.time()) / (24 * time.Hour))
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clamped builds a date with the day clamped to the month's length, so day
// 31 in February becomes the 28th or 29th.
func Clamped(year int, month time.Month, day int) Date {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return New(year, month, day)
}

// AddMonths steps the date by whole calendar months, clamping the day to the
// target month's length.
func (d Date) AddMonths(n int) Date {
	total := d.y*12 + int(d.m) - 1 + n
	year, month := total/12, time.Month(total%12+1)
	return Clamped(year, month, d.d)
}

// MarshalJSON encodes the date as an ISO-8601 string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO-8601 string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a clock time expressed as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "15:04:05" or "15:04".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

// SecondsApart returns the absolute distance in seconds between two clock
// times.
func SecondsApart(a, b TimeOfDay) int {
	diff := int(a) - int(b)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
