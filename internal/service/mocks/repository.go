package mocks

import (
	"context"
	"errors"

	"github.com/godilite/nps-summary/internal/repository/models"
)

// MockReportRepository is a mock implementation of the ReportRepository interface
// for testing the service layer.
type MockReportRepository struct {
	LatestRunFunc  func(ctx context.Context) (models.ReportRun, error)
	ListSheetsFunc func(ctx context.Context, runID string) ([]models.StoredSheet, error)
	GetSheetFunc   func(ctx context.Context, runID, name string) (models.StoredSheet, error)
}

// LatestRun implements the ReportRepository interface
func (m *MockReportRepository) LatestRun(ctx context.Context) (models.ReportRun, error) {
	if m.LatestRunFunc != nil {
		return m.LatestRunFunc(ctx)
	}
	return models.ReportRun{}, errors.New("LatestRunFunc not implemented")
}

// ListSheets implements the ReportRepository interface
func (m *MockReportRepository) ListSheets(ctx context.Context, runID string) ([]models.StoredSheet, error) {
	if m.ListSheetsFunc != nil {
		return m.ListSheetsFunc(ctx, runID)
	}
	return nil, errors.New("ListSheetsFunc not implemented")
}

// GetSheet implements the ReportRepository interface
func (m *MockReportRepository) GetSheet(ctx context.Context, runID, name string) (models.StoredSheet, error) {
	if m.GetSheetFunc != nil {
		return m.GetSheetFunc(ctx, runID, name)
	}
	return models.StoredSheet{}, errors.New("GetSheetFunc not implemented")
}
