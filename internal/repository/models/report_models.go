package models

import "time"

type ReportRun struct {
	ID          string
	GeneratedAt time.Time
}

type StoredSheet struct {
	RunID    string
	Position int
	Name     string
	Kind     string
	Header   []string
	Rows     [][]string
}
