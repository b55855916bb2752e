package survey

import (
	"fmt"
	"strconv"
	"strings"
)

// Headers of the derived columns appended to exported record sets.
const (
	MonthHeader   = "Month"
	QuarterHeader = "Quarter"
)

// Record is one survey submission. Fields holds the source columns keyed by header.
// Month and Quarter are derived; Quarter is 0 when the timestamp could not be parsed.
type Record struct {
	Fields  map[string]string
	Month   string
	Quarter int
}

// Get returns the value of a field, or "" when the field is absent.
func (r Record) Get(key string) string {
	return r.Fields[key]
}

// With returns a copy of the record with one field replaced.
func (r Record) With(key, value string) Record {
	fields := make(map[string]string, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[key] = value
	return Record{Fields: fields, Month: r.Month, Quarter: r.Quarter}
}

// HasQuarter reports whether a quarter was derived for the record.
func (r Record) HasQuarter() bool {
	return r.Quarter >= 1 && r.Quarter <= 4
}

// Dataset is an ordered record set sharing one header row.
type Dataset struct {
	Headers []string
	Records []Record
}

// WithRecords returns a dataset with the same headers and a new record set.
func (d Dataset) WithRecords(records []Record) Dataset {
	return Dataset{Headers: d.Headers, Records: records}
}

// FromTable builds a dataset from a header row and data rows.
// Short rows are padded, blank rows skipped, and repeated headers suffixed with ".1", ".2", ...
func FromTable(header []string, rows [][]string) Dataset {
	headers := dedupeHeaders(header)

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				fields[h] = row[i]
			} else {
				fields[h] = ""
			}
		}
		records = append(records, Record{Fields: fields})
	}

	return Dataset{Headers: headers, Records: records}
}

// Table renders the dataset as a header row plus data rows, with the derived
// Month and Quarter columns appended.
func (d Dataset) Table() ([]string, [][]string) {
	header := make([]string, 0, len(d.Headers)+2)
	header = append(header, d.Headers...)
	header = append(header, MonthHeader, QuarterHeader)

	rows := make([][]string, 0, len(d.Records))
	for _, r := range d.Records {
		row := make([]string, 0, len(header))
		for _, h := range d.Headers {
			row = append(row, r.Fields[h])
		}
		quarter := ""
		if r.HasQuarter() {
			quarter = strconv.Itoa(r.Quarter)
		}
		row = append(row, r.Month, quarter)
		rows = append(rows, row)
	}
	return header, rows
}

// dedupeHeaders suffixes repeated headers. Generated names never take a name
// that appears in the original header row.
func dedupeHeaders(header []string) []string {
	original := make(map[string]bool, len(header))
	for _, h := range header {
		original[h] = true
	}

	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		if used[name] {
			n := max(next[h], 1)
			for {
				name = fmt.Sprintf("%s.%d", h, n)
				n++
				if !used[name] && !original[name] {
					break
				}
			}
			next[h] = n
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
