// Package quarter derives calendar months and fiscal quarters from survey timestamps.
package quarter

import (
	"strings"
	"time"

	"github.com/godilite/nps-summary/internal/survey"
)

// Quarters lists the quarter values in report order.
var Quarters = []int{1, 2, 3, 4}

// Day/month layouts accepted for textual timestamps.
var layouts = []string{
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/06",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
}

// FromMonth maps a calendar month to its quarter (1=Jan-Mar ... 4=Oct-Dec).
func FromMonth(m time.Month) int {
	if m < time.January || m > time.December {
		return 0
	}
	return (int(m)-1)/3 + 1
}

// FromMonthName maps an English month name to its quarter.
func FromMonthName(name string) (int, bool) {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return FromMonth(m), true
		}
	}
	return 0, false
}

// ParseTimestamp parses a day/month/year timestamp, optionally with a time of day.
// Bare numbers are not timestamps.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// Resolver filters records to the processing year and tags them with month and quarter.
type Resolver struct {
	field string
	now   func() time.Time
}

type Option func(*Resolver)

// WithClock overrides the wall clock used to pick the processing year.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a resolver reading timestamps from the given field.
func NewResolver(timestampField string, opts ...Option) *Resolver {
	r := &Resolver{
		field: timestampField,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Year returns the processing year.
func (r *Resolver) Year() int {
	return r.now().Year()
}

// FilterYear drops records whose timestamp falls outside the processing year.
// Records with an unparseable timestamp are kept so they still reach the raw export.
func (r *Resolver) FilterYear(records []survey.Record) []survey.Record {
	year := r.Year()
	out := make([]survey.Record, 0, len(records))
	for _, rec := range records {
		ts, ok := ParseTimestamp(rec.Get(r.field))
		if ok && ts.Year() != year {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Assign sets Month and Quarter on every record. Unparseable timestamps leave both unset.
func (r *Resolver) Assign(records []survey.Record) []survey.Record {
	out := make([]survey.Record, len(records))
	for i, rec := range records {
		rec.Month, rec.Quarter = "", 0
		if ts, ok := ParseTimestamp(rec.Get(r.field)); ok {
			rec.Month = ts.Month().String()
			rec.Quarter, _ = FromMonthName(rec.Month)
		}
		out[i] = rec
	}
	return out
}
