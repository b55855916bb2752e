// Package normalize splits multi-agent survey rows and resolves free-text agent
// names against a country roster.
package normalize

import (
	"strings"

	"github.com/godilite/nps-summary/internal/survey"
	"github.com/samber/lo"
)

// Unknown is the identity given to names that match no roster entry.
const Unknown = "No Name"

// DefaultSeparators are the conjunctions joining several agent names in one answer.
var DefaultSeparators = []string{"and", "&"}

// Split breaks a name field on each separator in turn. Separators only match when
// surrounded by single spaces. Empty fragments are dropped; a value that yields no
// fragment comes back as its trimmed self.
func Split(value string, separators []string) []string {
	names := []string{value}
	for _, sep := range separators {
		delim := " " + sep + " "
		var next []string
		for _, name := range names {
			for _, part := range strings.Split(name, delim) {
				next = append(next, strings.TrimSpace(part))
			}
		}
		names = next
	}

	names = lo.Filter(names, func(name string, _ int) bool { return name != "" })
	if len(names) == 0 {
		return []string{strings.TrimSpace(value)}
	}
	return names
}

// SplitRecords replaces every multi-agent record with one copy per named agent,
// keeping the fragments in split order.
func SplitRecords(records []survey.Record, field string, separators []string) []survey.Record {
	return lo.FlatMap(records, func(rec survey.Record, _ int) []survey.Record {
		names := Split(rec.Get(field), separators)
		if len(names) == 1 {
			return []survey.Record{rec.With(field, names[0])}
		}
		return lo.Map(names, func(name string, _ int) survey.Record {
			return rec.With(field, name)
		})
	})
}

// Roster is the ordered list of canonical agent names for one country.
type Roster []string

// Resolve returns the first roster entry contained, case-insensitively, in raw,
// or Unknown when none is.
func (r Roster) Resolve(raw string) string {
	haystack := strings.ToLower(raw)
	for _, name := range r {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, needle) {
			return name
		}
	}
	return Unknown
}

// ResolveRecords overwrites the name field of every record with its resolved identity.
func (r Roster) ResolveRecords(records []survey.Record, field string) []survey.Record {
	return lo.Map(records, func(rec survey.Record, _ int) survey.Record {
		return rec.With(field, r.Resolve(rec.Get(field)))
	})
}
