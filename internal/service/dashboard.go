package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/nps-summary/internal/report"
	"go.uber.org/zap"
)

const (
	dbTimeout = 1 * time.Second
)

var (
	ErrNoReport       = errors.New("no report generated yet")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrStorageFailure = errors.New("storage failure")
)

// SheetChart is the bar-chart data of one quarter sheet.
type SheetChart struct {
	RunID          string
	Sheet          string
	Labels         []string
	Totals         []int
	WeightedScores []int
	Empty          bool
}

// DashboardService serves chart data from the latest stored report.
type DashboardService struct {
	storage ReportRepository
	logger  *zap.Logger
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(storage ReportRepository, logger *zap.Logger) *DashboardService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &DashboardService{
		storage: storage,
		logger:  logger.Named("dashboard"),
	}
}

// LatestRunID returns the id of the most recent stored report.
func (d *DashboardService) LatestRunID(ctx context.Context) (string, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	run, err := d.storage.LatestRun(dbCtx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoReport
		}
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return run.ID, nil
}

// ListSheets returns the quarter sheet names of a run in report order.
func (d *DashboardService) ListSheets(ctx context.Context, runID string) ([]string, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sheets, err := d.storage.ListSheets(dbCtx, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(sheets) == 0 {
		return nil, ErrNoReport
	}

	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		if s.Kind == string(report.KindPivot) {
			names = append(names, s.Name)
		}
	}
	return names, nil
}

// GetSheetChart computes total reviews and weighted scores per agent of a quarter sheet.
func (d *DashboardService) GetSheetChart(ctx context.Context, runID, name string) (SheetChart, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sheet, err := d.storage.GetSheet(dbCtx, runID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SheetChart{}, ErrSheetNotFound
		}
		return SheetChart{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if sheet.Kind != string(report.KindPivot) {
		return SheetChart{}, ErrSheetNotFound
	}

	chart := ChartFromSheet(sheet.Header, sheet.Rows)
	chart.RunID = runID
	chart.Sheet = name

	d.logger.Debug("sheet chart computed",
		zap.String("run_id", runID),
		zap.String("sheet", name),
		zap.Int("agents", len(chart.Labels)))

	return chart, nil
}

// ChartFromSheet reads a pivot sheet: the first column labels the agents and the
// remaining columns hold counts per rating.
func ChartFromSheet(header []string, rows [][]string) SheetChart {
	if len(rows) == 0 {
		return SheetChart{Empty: true}
	}

	weights := make([]int, len(header))
	for i := 1; i < len(header); i++ {
		weights[i] = RatingWeight(header[i])
	}

	chart := SheetChart{
		Labels:         make([]string, len(rows)),
		Totals:         make([]int, len(rows)),
		WeightedScores: make([]int, len(rows)),
	}
	for i, row := range rows {
		if len(row) > 0 {
			chart.Labels[i] = row[0]
		}
		for j := 1; j < len(row) && j < len(header); j++ {
			n, err := strconv.Atoi(strings.TrimSpace(row[j]))
			if err != nil {
				continue
			}
			chart.Totals[i] += n
			chart.WeightedScores[i] += n * weights[j]
		}
	}
	return chart
}

// RatingWeight is the integer value of a rating label, or 0 when the label is not an integer.
func RatingWeight(label string) int {
	w, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil {
		return 0
	}
	return w
}
