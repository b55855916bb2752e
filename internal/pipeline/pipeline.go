// Package pipeline cleans one country's survey export into quarter-tagged,
// identity-normalized records.
package pipeline

import (
	"strings"
	"time"

	"github.com/godilite/nps-summary/internal/normalize"
	"github.com/godilite/nps-summary/internal/quarter"
	"github.com/godilite/nps-summary/internal/survey"
)

// Country describes how to read and clean one country's survey export.
type Country struct {
	Code           string
	Source         string
	TimestampField string
	AgentField     string
	RatingField    string
	IDField        string
	Roster         normalize.Roster
	Separators     []string
}

type stage func([]survey.Record) []survey.Record

// Pipeline runs the cleaning stages for one country.
type Pipeline struct {
	country  Country
	resolver *quarter.Resolver
}

// New creates a pipeline for the country. now supplies the processing year; nil means time.Now.
func New(country Country, now func() time.Time) *Pipeline {
	if len(country.Separators) == 0 {
		country.Separators = normalize.DefaultSeparators
	}
	var opts []quarter.Option
	if now != nil {
		opts = append(opts, quarter.WithClock(now))
	}
	return &Pipeline{
		country:  country,
		resolver: quarter.NewResolver(country.TimestampField, opts...),
	}
}

// Run applies year filter, quarter derivation, text cast, name split and identity
// resolution, in that order.
func (p *Pipeline) Run(ds survey.Dataset) survey.Dataset {
	field := p.country.AgentField
	stages := []stage{
		p.resolver.FilterYear,
		p.resolver.Assign,
		func(rs []survey.Record) []survey.Record { return castToText(rs, field) },
		func(rs []survey.Record) []survey.Record {
			return normalize.SplitRecords(rs, field, p.country.Separators)
		},
		func(rs []survey.Record) []survey.Record { return p.country.Roster.ResolveRecords(rs, field) },
	}

	records := ds.Records
	for _, s := range stages {
		records = s(records)
	}
	return ds.WithRecords(records)
}

// castToText guarantees the name field exists and carries no surrounding whitespace.
func castToText(records []survey.Record, field string) []survey.Record {
	out := make([]survey.Record, len(records))
	for i, rec := range records {
		out[i] = rec.With(field, strings.TrimSpace(rec.Get(field)))
	}
	return out
}
