// Package report assembles per-country pivot tables and cleaned records into
// an ordered sheet layout.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/godilite/nps-summary/internal/pivot"
	"github.com/godilite/nps-summary/internal/survey"
)

type Kind string

const (
	KindPivot Kind = "pivot"
	KindRaw   Kind = "raw"
)

// Sheet is one named table of the output workbook.
type Sheet struct {
	Name   string
	Kind   Kind
	Header []string
	Rows   [][]string
}

// CountryResult holds one country's quarter tables (Q1..Q4) and its cleaned records.
type CountryResult struct {
	Code    string
	Pivots  []pivot.Table
	Cleaned survey.Dataset
}

// QuarterlyReport is the result of one run.
type QuarterlyReport struct {
	RunID       string
	GeneratedAt time.Time
	Countries   []CountryResult
}

// Pivot returns the table of a country for a quarter.
func (r *QuarterlyReport) Pivot(code string, q int) (pivot.Table, bool) {
	for _, c := range r.Countries {
		if c.Code != code {
			continue
		}
		for _, t := range c.Pivots {
			if t.Quarter == q {
				return t, true
			}
		}
	}
	return pivot.Table{}, false
}

// Sheets lays the report out as sheets.
func (r *QuarterlyReport) Sheets() []Sheet {
	return Assemble(r.Countries)
}

// QuarterSheetName names the pivot sheet of a country and quarter.
func QuarterSheetName(code string, q int) string {
	return fmt.Sprintf("%s Q%d", code, q)
}

// RawSheetName names the cleaned record sheet of a country.
func RawSheetName(code string) string {
	return code + " Raw"
}

// Assemble emits, for each country in order, its four quarter sheets followed by its raw sheet.
func Assemble(countries []CountryResult) []Sheet {
	sheets := make([]Sheet, 0, len(countries)*5)
	for _, c := range countries {
		for _, t := range c.Pivots {
			sheets = append(sheets, PivotSheet(QuarterSheetName(c.Code, t.Quarter), t))
		}
		header, rows := c.Cleaned.Table()
		sheets = append(sheets, Sheet{
			Name:   RawSheetName(c.Code),
			Kind:   KindRaw,
			Header: header,
			Rows:   rows,
		})
	}
	return sheets
}

// PivotSheet renders a table with its row-label header first. Empty tables render
// as a sheet without header or rows.
func PivotSheet(name string, t pivot.Table) Sheet {
	sheet := Sheet{Name: name, Kind: KindPivot}
	if t.Empty() {
		return sheet
	}

	sheet.Header = append([]string{t.IndexHeader}, t.Columns...)
	sheet.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, 0, len(row.Counts)+1)
		cells = append(cells, row.Label)
		for _, n := range row.Counts {
			cells = append(cells, strconv.Itoa(n))
		}
		sheet.Rows[i] = cells
	}
	return sheet
}
