package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Date is a calendar date. The embedded time is always midnight UTC.
type Date struct {
	time.Time
}

// NewDate builds a Date from its calendar parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date in loc (UTC when loc is nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// MustParseDate is ParseDate for literals known to be valid. It panics otherwise.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d falls strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d falls strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether d and o are the same calendar date.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
