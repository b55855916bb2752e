package service

import (
	"context"

	"github.com/godilite/nps-summary/internal/pipeline"
	"github.com/godilite/nps-summary/internal/report"
	"github.com/godilite/nps-summary/internal/repository/models"
	"github.com/godilite/nps-summary/internal/survey"
)

// SourceReader loads one country's raw survey export.
type SourceReader interface {
	Load(ctx context.Context, country pipeline.Country) (survey.Dataset, error)
}

// ReportSink persists an assembled report.
type ReportSink interface {
	WriteReport(ctx context.Context, rep *report.QuarterlyReport) error
}

// ReportDiscarder is implemented by sinks that can withdraw a written run
// when a later sink fails.
type ReportDiscarder interface {
	DiscardReport(ctx context.Context, runID string) error
}

// ReportRepository defines the stored-report reads used by the dashboard.
type ReportRepository interface {
	LatestRun(ctx context.Context) (models.ReportRun, error)
	ListSheets(ctx context.Context, runID string) ([]models.StoredSheet, error)
	GetSheet(ctx context.Context, runID, name string) (models.StoredSheet, error)
}
