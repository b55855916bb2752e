package mocks

import (
	"context"
	"errors"

	"github.com/godilite/nps-summary/internal/pipeline"
	"github.com/godilite/nps-summary/internal/report"
	"github.com/godilite/nps-summary/internal/survey"
)

// MockSourceReader is a mock implementation of the SourceReader interface.
type MockSourceReader struct {
	LoadFunc func(ctx context.Context, country pipeline.Country) (survey.Dataset, error)
}

// Load implements the SourceReader interface
func (m *MockSourceReader) Load(ctx context.Context, country pipeline.Country) (survey.Dataset, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, country)
	}
	return survey.Dataset{}, errors.New("LoadFunc not implemented")
}

// MockReportSink records written reports.
type MockReportSink struct {
	WriteReportFunc func(ctx context.Context, rep *report.QuarterlyReport) error
	Written         []*report.QuarterlyReport
}

// MockDiscardingSink is a sink that can also withdraw a written run.
type MockDiscardingSink struct {
	MockReportSink
	DiscardReportFunc func(ctx context.Context, runID string) error
	Discarded         []string
}

// DiscardReport implements the ReportDiscarder interface
func (m *MockDiscardingSink) DiscardReport(ctx context.Context, runID string) error {
	m.Discarded = append(m.Discarded, runID)
	if m.DiscardReportFunc != nil {
		return m.DiscardReportFunc(ctx, runID)
	}
	return nil
}

// WriteReport implements the ReportSink interface
func (m *MockReportSink) WriteReport(ctx context.Context, rep *report.QuarterlyReport) error {
	m.Written = append(m.Written, rep)
	if m.WriteReportFunc != nil {
		return m.WriteReportFunc(ctx, rep)
	}
	return nil
}
