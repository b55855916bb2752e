package grpc

import (
	"context"
	"time"

	"github.com/godilite/nps-summary/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type DashboardService interface {
	LatestRunID(ctx context.Context) (string, error)
	ListSheets(ctx context.Context, runID string) ([]string, error)
	GetSheetChart(ctx context.Context, runID, name string) (service.SheetChart, error)
}
