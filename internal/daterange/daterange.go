// Package daterange produces the inclusive sequence of calendar days
// between two dates.
package daterange

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// InputLayout is the DD-MM-YYYY layout accepted from users and used in
// source URLs.
const InputLayout = "02-01-2006"

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// New returns a Range over the calendar days of start and end. Time of day
// and location are discarded.
func New(start, end time.Time) Range {
	return Range{Start: truncate(start), End: truncate(end)}
}

// Parse builds a Range from two DD-MM-YYYY strings.
func Parse(start, end string) (Range, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Range{}, fmt.Errorf("start date: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return Range{}, fmt.Errorf("end date: %w", err)
	}
	return New(s, e), nil
}

// ParseDate parses a DD-MM-YYYY string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(InputLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected DD-MM-YYYY: %w", s, err)
	}
	return t, nil
}

// Reversed reports whether End is before Start.
func (r Range) Reversed() bool {
	return r.End.Before(r.Start)
}

// Len returns the number of days in the range. A reversed range is empty.
func (r Range) Len() int {
	if r.Reversed() {
		return 0
	}
	// Dates are UTC midnights so every day is exactly 24h.
	return int(r.End.Sub(r.Start)/(24*time.Hour)) + 1
}

// All yields every day from Start to End inclusive. The sequence can be
// ranged over any number of times.
func (r Range) All() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// String renders the range as "DD-MM-YYYY..DD-MM-YYYY".
func (r Range) String() string {
	return r.Start.Format(InputLayout) + ".." + r.End.Format(InputLayout)
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
