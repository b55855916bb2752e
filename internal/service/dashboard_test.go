package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/godilite/nps-summary/internal/repository/models"
	"github.com/godilite/nps-summary/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDashboardService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		repo := &mocks.MockReportRepository{}
		logger := zap.NewNop()

		svc := NewDashboardService(repo, logger)

		assert.NotNil(t, svc)
		assert.Equal(t, repo, svc.storage)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewDashboardService(nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewDashboardService(&mocks.MockReportRepository{}, nil)
		assert.NotNil(t, svc.logger)
	})
}

func TestLatestRunID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns latest run", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			LatestRunFunc: func(ctx context.Context) (models.ReportRun, error) {
				return models.ReportRun{ID: "run-9", GeneratedAt: time.Now()}, nil
			},
		}

		id, err := NewDashboardService(repo, zap.NewNop()).LatestRunID(ctx)

		assert.NoError(t, err)
		assert.Equal(t, "run-9", id)
	})

	t.Run("no runs stored", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			LatestRunFunc: func(ctx context.Context) (models.ReportRun, error) {
				return models.ReportRun{}, fmt.Errorf("latest run: %w", sql.ErrNoRows)
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).LatestRunID(ctx)

		assert.ErrorIs(t, err, ErrNoReport)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			LatestRunFunc: func(ctx context.Context) (models.ReportRun, error) {
				return models.ReportRun{}, errors.New("database is locked")
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).LatestRunID(ctx)

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "database is locked")
	})
}

func TestListSheets(t *testing.T) {
	ctx := context.Background()

	t.Run("hides raw sheets", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			ListSheetsFunc: func(ctx context.Context, runID string) ([]models.StoredSheet, error) {
				assert.Equal(t, "run-1", runID)
				return []models.StoredSheet{
					{Name: "SG Q1", Kind: "pivot"},
					{Name: "SG Q2", Kind: "pivot"},
					{Name: "SG Raw", Kind: "raw"},
					{Name: "MY Q1", Kind: "pivot"},
					{Name: "MY Raw", Kind: "raw"},
				}, nil
			},
		}

		names, err := NewDashboardService(repo, zap.NewNop()).ListSheets(ctx, "run-1")

		assert.NoError(t, err)
		assert.Equal(t, []string{"SG Q1", "SG Q2", "MY Q1"}, names)
	})

	t.Run("unknown run", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			ListSheetsFunc: func(ctx context.Context, runID string) ([]models.StoredSheet, error) {
				return nil, nil
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).ListSheets(ctx, "nope")

		assert.ErrorIs(t, err, ErrNoReport)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			ListSheetsFunc: func(ctx context.Context, runID string) ([]models.StoredSheet, error) {
				return nil, errors.New("io error")
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).ListSheets(ctx, "run-1")

		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

func TestGetSheetChart(t *testing.T) {
	ctx := context.Background()

	t.Run("totals and weighted scores", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			GetSheetFunc: func(ctx context.Context, runID, name string) (models.StoredSheet, error) {
				assert.Equal(t, "SG Q1", name)
				return models.StoredSheet{
					Name:   name,
					Kind:   "pivot",
					Header: []string{"Sales Executive", "1", "3", "5"},
					Rows: [][]string{
						{"Jasmine", "1", "0", "2"},
						{"Mark", "0", "4", "0"},
					},
				}, nil
			},
		}

		chart, err := NewDashboardService(repo, zap.NewNop()).GetSheetChart(ctx, "run-1", "SG Q1")

		require.NoError(t, err)
		assert.Equal(t, "run-1", chart.RunID)
		assert.Equal(t, "SG Q1", chart.Sheet)
		assert.Equal(t, []string{"Jasmine", "Mark"}, chart.Labels)
		assert.Equal(t, []int{3, 4}, chart.Totals)
		assert.Equal(t, []int{11, 12}, chart.WeightedScores)
		assert.False(t, chart.Empty)
	})

	t.Run("empty quarter", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			GetSheetFunc: func(ctx context.Context, runID, name string) (models.StoredSheet, error) {
				return models.StoredSheet{Name: name, Kind: "pivot"}, nil
			},
		}

		chart, err := NewDashboardService(repo, zap.NewNop()).GetSheetChart(ctx, "run-1", "TH Q4")

		require.NoError(t, err)
		assert.True(t, chart.Empty)
		assert.Empty(t, chart.Labels)
	})

	t.Run("raw sheets are not charted", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			GetSheetFunc: func(ctx context.Context, runID, name string) (models.StoredSheet, error) {
				return models.StoredSheet{Name: name, Kind: "raw"}, nil
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).GetSheetChart(ctx, "run-1", "SG Raw")

		assert.ErrorIs(t, err, ErrSheetNotFound)
	})

	t.Run("missing sheet", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			GetSheetFunc: func(ctx context.Context, runID, name string) (models.StoredSheet, error) {
				return models.StoredSheet{}, fmt.Errorf("get sheet: %w", sql.ErrNoRows)
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).GetSheetChart(ctx, "run-1", "XX Q1")

		assert.ErrorIs(t, err, ErrSheetNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mocks.MockReportRepository{
			GetSheetFunc: func(ctx context.Context, runID, name string) (models.StoredSheet, error) {
				return models.StoredSheet{}, errors.New("query timeout")
			},
		}

		_, err := NewDashboardService(repo, zap.NewNop()).GetSheetChart(ctx, "run-1", "SG Q1")

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "query timeout")
	})
}

func TestChartFromSheet(t *testing.T) {
	t.Run("non numeric rating labels weigh nothing", func(t *testing.T) {
		chart := ChartFromSheet(
			[]string{"Agent", "Good", "4"},
			[][]string{{"Mel", "2", "1"}},
		)

		assert.Equal(t, []int{3}, chart.Totals)
		assert.Equal(t, []int{4}, chart.WeightedScores)
	})

	t.Run("ragged and non numeric cells are skipped", func(t *testing.T) {
		chart := ChartFromSheet(
			[]string{"Agent", "5", "2"},
			[][]string{{"Mel", "x"}, {"Mark", "1", "1", "9"}},
		)

		assert.Equal(t, []int{0, 2}, chart.Totals)
		assert.Equal(t, []int{0, 7}, chart.WeightedScores)
	})
}

func TestRatingWeight(t *testing.T) {
	assert.Equal(t, 1, RatingWeight("1"))
	assert.Equal(t, 5, RatingWeight(" 5 "))
	assert.Equal(t, 10, RatingWeight("10"))
	assert.Equal(t, 0, RatingWeight("Excellent"))
	assert.Equal(t, 0, RatingWeight("4.5"))
}
