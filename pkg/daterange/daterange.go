// Package daterange holds inclusive, day-granular date intervals.
package daterange

import (
	"errors"
	"fmt"
	"time"
)

const Layout = "2006-01-02"

var ErrInverted = errors.New("end date before start date")

// Range is an inclusive interval of calendar days in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// New builds a range from a start day and an optional end day; a nil end
// means the single day start.
func New(start time.Time, end *time.Time) Range {
	r := Range{Start: Day(start), End: Day(start)}
	if end != nil {
		r.End = Day(*end)
	}
	return r
}

func Single(day time.Time) Range {
	return New(day, nil)
}

func (r Range) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInverted, r.Start.Format(Layout), r.End.Format(Layout))
	}
	return nil
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r Range) Overlaps(o Range) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

func (r Range) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of calendar days covered, 0 for an inverted range.
func (r Range) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r Range) String() string {
	return r.Start.Format(Layout) + ".." + r.End.Format(Layout)
}
