// Package pivot cross-tabulates cleaned survey records per quarter.
package pivot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/godilite/nps-summary/internal/quarter"
	"github.com/godilite/nps-summary/internal/survey"
	"github.com/samber/lo"
)

// Spec names the fields used to build a table.
// Index labels rows, Column labels columns. Every quarter record with a
// non-blank Column value is counted once.
type Spec struct {
	Index  string
	Column string
}

// Row is one row label and its counts, aligned with Table.Columns.
type Row struct {
	Label  string
	Counts []int
}

// Table is a dense count matrix for one quarter.
type Table struct {
	Quarter     int
	IndexHeader string
	Columns     []string
	Rows        []Row
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Count returns the cell for a row label and column, or 0 if either is absent.
func (t Table) Count(label, column string) int {
	col := lo.IndexOf(t.Columns, column)
	if col < 0 {
		return 0
	}
	for _, r := range t.Rows {
		if r.Label == label {
			return r.Counts[col]
		}
	}
	return 0
}

// Total sums every cell.
func (t Table) Total() int {
	total := 0
	for _, r := range t.Rows {
		total += lo.Sum(r.Counts)
	}
	return total
}

// Aggregate builds one table per quarter, in quarter order.
// Records without a quarter land in none of them.
func Aggregate(records []survey.Record, spec Spec) []Table {
	return lo.Map(quarter.Quarters, func(q int, _ int) Table {
		return ForQuarter(records, q, spec)
	})
}

// ForQuarter builds the table for a single quarter.
func ForQuarter(records []survey.Record, q int, spec Spec) Table {
	table := Table{Quarter: q, IndexHeader: spec.Index}

	slice := lo.Filter(records, func(r survey.Record, _ int) bool {
		return r.Quarter == q && columnValue(r, spec) != ""
	})
	if len(slice) == 0 {
		return table
	}

	labels := lo.Uniq(lo.Map(slice, func(r survey.Record, _ int) string { return r.Get(spec.Index) }))
	sort.Strings(labels)
	columns := lo.Uniq(lo.Map(slice, func(r survey.Record, _ int) string { return columnValue(r, spec) }))
	sortLabels(columns)

	rowIdx := make(map[string]int, len(labels))
	table.Rows = make([]Row, len(labels))
	for i, l := range labels {
		rowIdx[l] = i
		table.Rows[i] = Row{Label: l, Counts: make([]int, len(columns))}
	}
	colIdx := make(map[string]int, len(columns))
	for i, c := range columns {
		colIdx[c] = i
	}
	table.Columns = columns

	for _, r := range slice {
		table.Rows[rowIdx[r.Get(spec.Index)]].Counts[colIdx[columnValue(r, spec)]]++
	}

	return table
}

func columnValue(r survey.Record, spec Spec) string {
	return strings.TrimSpace(r.Get(spec.Column))
}

// sortLabels orders numerically when every label is a number, lexically otherwise.
func sortLabels(labels []string) {
	nums := make(map[string]float64, len(labels))
	for _, l := range labels {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			sort.Strings(labels)
			return
		}
		nums[l] = f
	}
	sort.Slice(labels, func(i, j int) bool {
		if nums[labels[i]] != nums[labels[j]] {
			return nums[labels[i]] < nums[labels[j]]
		}
		return labels[i] < labels[j]
	})
}
