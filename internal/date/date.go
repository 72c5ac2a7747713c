// Package date provides a calendar day type with no time component.
package date

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const readDateFormat = "2006-1-2" // permissive read format, allows 2024-1-5

// Format is the ISO-8601 layout used to persist and print dates.
const Format = "2006-01-02"

// Date is a calendar day. The zero value is not a valid day and reports IsZero.
type Date struct {
	y int
	m time.Month
	d int
}

// time returns the canonical midnight UTC instant for the day.
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// FromTime returns the day of t in t's own location.
func FromTime(t time.Time) Date { return New(t.Date()) }

// Today returns the current local date.
func Today() Date { return FromTime(time.Now()) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// Before reports whether d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x.
func (d Date) Compare(x Date) int { return d.time().Compare(x.time()) }

// Add returns the date i days after d.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.time() }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(Format)
}

// Parse parses a Date. It is lenient and accepts single digit months and days.
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, Format, err)
	}
	return FromTime(on), nil
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// Value implements driver.Valuer; dates are stored as ISO text so that
// lexicographic order matches chronological order.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("cannot store zero date")
	}
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.parseInto(v)
	case []byte:
		return d.parseInto(string(v))
	case time.Time:
		*d = New(v.UTC().Date())
		return nil
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
}

func (d *Date) parseInto(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the date as a JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a JSON string date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	if str == "" {
		*d = Date{}
		return nil
	}
	return d.parseInto(str)
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
	_ driver.Valuer    = Date{}
)
