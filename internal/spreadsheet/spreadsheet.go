// Package spreadsheet adapts xlsx workbooks to survey datasets and report sheets.
package spreadsheet

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/nps-summary/internal/pipeline"
	"github.com/godilite/nps-summary/internal/report"
	"github.com/godilite/nps-summary/internal/survey"
	"github.com/godilite/nps-summary/pkg/workbook"
	"github.com/xuri/excelize/v2"
)

// TimestampLayout is how spreadsheet date cells are rendered once loaded.
const TimestampLayout = "02/01/2006 15:04:05"

// Source loads country survey exports from a directory.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Path resolves a source name against the source directory.
func (s *Source) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// Load reads the first sheet of the country's workbook. Date cells in the
// timestamp column are rendered as day/month/year text.
func (s *Source) Load(ctx context.Context, country pipeline.Country) (survey.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return survey.Dataset{}, err
	}

	table, err := workbook.ReadFirstSheet(s.Path(country.Source))
	if err != nil {
		return survey.Dataset{}, err
	}

	ds := survey.FromTable(table.Header, table.Rows)
	for _, rec := range ds.Records {
		raw, ok := rec.Fields[country.TimestampField]
		if !ok {
			continue
		}
		if ts, ok := parseSerial(raw); ok {
			rec.Fields[country.TimestampField] = ts.Format(TimestampLayout)
		}
	}
	return ds, nil
}

// parseSerial converts an Excel serial date as stored in raw xlsx cells.
func parseSerial(raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Exporter writes assembled reports to one xlsx workbook.
type Exporter struct {
	path string
}

func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

func (e *Exporter) Path() string {
	return e.path
}

// WriteReport writes every sheet of the report in layout order.
func (e *Exporter) WriteReport(ctx context.Context, rep *report.QuarterlyReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sheets := rep.Sheets()
	tables := make([]workbook.Table, len(sheets))
	for i, s := range sheets {
		tables[i] = workbook.Table{Name: s.Name, Header: s.Header, Rows: s.Rows}
	}
	if err := workbook.Write(e.path, tables); err != nil {
		return fmt.Errorf("export %s: %w", e.path, err)
	}
	return nil
}
