package core

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type (
	// Date is a calendar day in UTC. Its string form is fixed-width and
	// zero-padded, so string order equals chronological order.
	Date struct {
		time.Time
	}

	// Month is a calendar month, normalized to its first day in UTC.
	Month struct {
		time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Prev returns the previous calendar day.
func (d Date) Prev() Date {
	return Date{Time: d.AddDate(0, 0, -1)}
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return Date{Time: d.AddDate(0, 0, 1)}
}

// Month returns the month the date falls in.
func (d Date) Month() Month {
	return NewMonth(d.Year(), int(d.Time.Month()))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
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

func NewMonth(year, month int) Month {
	return Month{Time: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)}
}

// MonthOf returns the calendar month of an instant.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), int(t.Month()))
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Time: t}, nil
}

func (m Month) Validate() error {
	if m.IsZero() {
		return fmt.Errorf("%w: zero month", ErrInvalidMonth)
	}
	return nil
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.Format(MonthLayout)
}

// Next returns the following month.
func (m Month) Next() Month {
	return Month{Time: m.AddDate(0, 1, 0)}
}

// Range returns the first day of the month and the first day of the next
// month, suitable for an inclusive/exclusive date range lookup.
func (m Month) Range() (from, to Date) {
	return Date{Time: m.Time}, Date{Time: m.Next().Time}
}

// Before reports whether m is an earlier month than other.
func (m Month) Before(other Month) bool {
	return m.Time.Before(other.Time)
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMonth, err)
	}
	if s == "" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
