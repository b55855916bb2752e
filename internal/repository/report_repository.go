package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/nps-summary/internal/report"
	"github.com/godilite/nps-summary/internal/repository/models"
)

// timeLayout keeps stored timestamps lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS report_sheets (
		run_id TEXT NOT NULL REFERENCES report_runs(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		header TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
}

type ReportRepository struct {
	db     *sql.DB
	driver string
}

// NewReportRepository wraps db. driver selects the placeholder style ("pgx" uses $n).
func NewReportRepository(db *sql.DB, driver string) *ReportRepository {
	return &ReportRepository{db: db, driver: driver}
}

// Migrate creates the report tables when missing.
func (s *ReportRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// WriteReport stores a run and all its sheets.
func (s *ReportRepository) WriteReport(ctx context.Context, rep *report.QuarterlyReport) error {
	sheets := rep.Sheets()
	stored := make([]models.StoredSheet, len(sheets))
	for i, sh := range sheets {
		stored[i] = models.StoredSheet{
			RunID:    rep.RunID,
			Position: i,
			Name:     sh.Name,
			Kind:     string(sh.Kind),
			Header:   sh.Header,
			Rows:     sh.Rows,
		}
	}
	return s.SaveRun(ctx, models.ReportRun{ID: rep.RunID, GeneratedAt: rep.GeneratedAt}, stored)
}

// SaveRun inserts a run and its sheets in one transaction.
func (s *ReportRepository) SaveRun(ctx context.Context, run models.ReportRun, sheets []models.StoredSheet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SaveRun: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO report_runs (id, generated_at) VALUES (?, ?)`),
		run.ID, run.GeneratedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	insertSheet := s.rebind(`
		INSERT INTO report_sheets (run_id, position, name, kind, header, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for _, sh := range sheets {
		header, err := json.Marshal(nonNil(sh.Header))
		if err != nil {
			return fmt.Errorf("encode header of %q: %w", sh.Name, err)
		}
		rows, err := json.Marshal(nonNilRows(sh.Rows))
		if err != nil {
			return fmt.Errorf("encode rows of %q: %w", sh.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insertSheet, run.ID, sh.Position, sh.Name, sh.Kind, string(header), string(rows)); err != nil {
			return fmt.Errorf("insert sheet %q: %w", sh.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit SaveRun: %w", err)
	}
	return nil
}

// DiscardReport removes a run and its sheets. Removing an unknown run is not an error.
func (s *ReportRepository) DiscardReport(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin DiscardReport: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM report_sheets WHERE run_id = ?`), runID); err != nil {
		return fmt.Errorf("delete sheets of %q: %w", runID, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM report_runs WHERE id = ?`), runID); err != nil {
		return fmt.Errorf("delete run %q: %w", runID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit DiscardReport: %w", err)
	}
	return nil
}

// LatestRun returns the most recently generated run, or sql.ErrNoRows when none exists.
func (s *ReportRepository) LatestRun(ctx context.Context) (models.ReportRun, error) {
	const query = `
		SELECT id, generated_at
		FROM report_runs
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var run models.ReportRun
	var generatedAt string
	if err := s.db.QueryRowContext(ctx, query).Scan(&run.ID, &generatedAt); err != nil {
		return models.ReportRun{}, fmt.Errorf("query LatestRun: %w", err)
	}

	t, err := time.Parse(timeLayout, generatedAt)
	if err != nil {
		return models.ReportRun{}, fmt.Errorf("parse generated_at %q: %w", generatedAt, err)
	}
	run.GeneratedAt = t
	return run, nil
}

// ListSheets returns the sheet names and kinds of a run in position order.
func (s *ReportRepository) ListSheets(ctx context.Context, runID string) ([]models.StoredSheet, error) {
	query := s.rebind(`
		SELECT position, name, kind
		FROM report_sheets
		WHERE run_id = ?
		ORDER BY position
	`)

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query ListSheets: %w", err)
	}
	defer rows.Close()

	var results []models.StoredSheet
	for rows.Next() {
		sh := models.StoredSheet{RunID: runID}
		if err := rows.Scan(&sh.Position, &sh.Name, &sh.Kind); err != nil {
			return nil, fmt.Errorf("scan ListSheets row: %w", err)
		}
		results = append(results, sh)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListSheets: %w", err)
	}
	return results, nil
}

// GetSheet returns one sheet with its cells, or sql.ErrNoRows when absent.
func (s *ReportRepository) GetSheet(ctx context.Context, runID, name string) (models.StoredSheet, error) {
	query := s.rebind(`
		SELECT position, kind, header, body
		FROM report_sheets
		WHERE run_id = ? AND name = ?
	`)

	sh := models.StoredSheet{RunID: runID, Name: name}
	var header, body string
	err := s.db.QueryRowContext(ctx, query, runID, name).Scan(&sh.Position, &sh.Kind, &header, &body)
	if err != nil {
		return models.StoredSheet{}, fmt.Errorf("query GetSheet: %w", err)
	}

	if err := json.Unmarshal([]byte(header), &sh.Header); err != nil {
		return models.StoredSheet{}, fmt.Errorf("decode header of %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(body), &sh.Rows); err != nil {
		return models.StoredSheet{}, fmt.Errorf("decode rows of %q: %w", name, err)
	}
	return sh, nil
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres drivers.
func (s *ReportRepository) rebind(query string) string {
	if s.driver != "pgx" && s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRows(rows [][]string) [][]string {
	if rows == nil {
		return [][]string{}
	}
	return rows
}
