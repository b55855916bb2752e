package mocks

import (
	"context"
	"errors"

	"github.com/godilite/nps-summary/internal/service"
)

// MockDashboardService is a function-field mock of the dashboard service.
type MockDashboardService struct {
	LatestRunIDFunc   func(ctx context.Context) (string, error)
	ListSheetsFunc    func(ctx context.Context, runID string) ([]string, error)
	GetSheetChartFunc func(ctx context.Context, runID, name string) (service.SheetChart, error)
}

func (m *MockDashboardService) LatestRunID(ctx context.Context) (string, error) {
	if m.LatestRunIDFunc != nil {
		return m.LatestRunIDFunc(ctx)
	}
	return "run-1", nil
}

func (m *MockDashboardService) ListSheets(ctx context.Context, runID string) ([]string, error) {
	if m.ListSheetsFunc != nil {
		return m.ListSheetsFunc(ctx, runID)
	}
	return nil, errors.New("ListSheetsFunc not implemented")
}

func (m *MockDashboardService) GetSheetChart(ctx context.Context, runID, name string) (service.SheetChart, error) {
	if m.GetSheetChartFunc != nil {
		return m.GetSheetChartFunc(ctx, runID, name)
	}
	return service.SheetChart{}, errors.New("GetSheetChartFunc not implemented")
}
