package lifecycle

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// Zone is the civil timezone every calendar comparison is made in (UTC+05:30).
var Zone = time.FixedZone("IST", 5*60*60+30*60)

// DateLayout is the wire and storage format for Date values.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// ErrMalformedInput is returned when a value cannot be parsed or normalized.
var ErrMalformedInput = errors.New("malformed input")

// Date is a calendar date with no time-of-day component.
// The zero Date means "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for y-m-d (so Feb 30 becomes Mar 1/2).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, Zone))
}

// DateOf returns the calendar date the instant t falls on in Zone.
func DateOf(t time.Time) Date {
	y, m, d := t.In(Zone).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
// PRE: none
// POST: Returns the date, or an error wrapping ErrMalformedInput
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, Zone)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q: %v", ErrMalformedInput, s, err)
	}
	return DateOf(t), nil
}

// Midnight returns the instant the date starts at in Zone.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, Zone)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Midnight().Format(DateLayout)
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return DaysUntil(other, d) > 0
}

// After reports whether d is a later calendar day than other.
func (d Date) After(other Date) bool {
	return DaysUntil(other, d) < 0
}

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight().AddDate(0, 0, n))
}

// AddMonths returns the same day n months later, clamped to the last day of
// the target month (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, Zone).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return Date{Year: first.Year(), Month: first.Month(), Day: day}
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; dates are stored as YYYY-MM-DD text and
// the zero Date as an empty string.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = DateOf(v)
		return nil
	}
	return fmt.Errorf("%w: cannot scan %T into Date", ErrMalformedInput, src)
}

// DaysUntil returns the signed number of calendar days from today to target.
// Both dates are aligned to midnight in Zone before subtracting, so the
// result never depends on time of day.
// POST: negative when target is in the past, 0 when target is today
func DaysUntil(target, today Date) int {
	diff := target.Midnight().Unix() - today.Midnight().Unix()
	return int(diff / secondsPerDay)
}

// DaysSince returns the number of calendar days from target to today.
// INVARIANT: DaysSince(x, t) == -DaysUntil(x, t)
func DaysSince(target, today Date) int {
	return -DaysUntil(target, today)
}
