package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godilite/nps-summary/internal/service"
	"github.com/godilite/nps-summary/pkg/cache"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

type CacheKeyType string

const (
	cacheKeySheets CacheKeyType = "grpc:sheets"
	cacheKeyChart  CacheKeyType = "grpc:sheet_chart"
)

type GRPCHandlers struct {
	dashboard DashboardService
	cache     Cacher
	logger    *zap.Logger
	reads     *readThrough
	cacheTTL  time.Duration
	runs      runKeys
}

// runKeys remembers the cache keys handed out for the most recent run.
type runKeys struct {
	mu    sync.Mutex
	runID string
	keys  map[string]struct{}
}

var _ DashboardServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers. A nil cache disables caching.
func NewGRPCHandlers(dashboard DashboardService, c Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewGRPCHandlers")
	}
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	logger = logger.Named("grpc-handler")
	return &GRPCHandlers{
		dashboard: dashboard,
		cache:     c,
		logger:    logger,
		reads:     newReadThrough(c, ttl, logger),
		cacheTTL:  ttl,
	}
}

// cacheKey scopes keys by run so a new report never serves stale sheets.
func cacheKey(prefix CacheKeyType, runID string, parts ...string) string {
	return strings.Join(append([]string{string(prefix), runID}, parts...), ":")
}

// scopedKey builds the cache key for runID. The first key of a newer run
// evicts every key issued for the previous one.
func (s *GRPCHandlers) scopedKey(ctx context.Context, prefix CacheKeyType, runID string, parts ...string) string {
	key := cacheKey(prefix, runID, parts...)

	s.runs.mu.Lock()
	var stale []string
	if s.runs.runID != runID {
		for k := range s.runs.keys {
			stale = append(stale, k)
		}
		s.runs.runID = runID
		s.runs.keys = make(map[string]struct{})
	}
	s.runs.keys[key] = struct{}{}
	s.runs.mu.Unlock()

	if len(stale) == 0 {
		return key
	}
	if err := s.cache.Delete(ctx, stale...); err != nil {
		s.logger.Warn("cache eviction failed", zap.String("run_id", runID), zap.Error(err))
	} else {
		s.logger.Info("evicted superseded run", zap.String("run_id", runID), zap.Int("keys", len(stale)))
	}
	return key
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrNoReport):
		s.logger.Info("no report available", zap.String("op", op))
		return status.Error(codes.NotFound, "no report generated yet")
	case errors.Is(err, service.ErrSheetNotFound):
		s.logger.Info("sheet not found", zap.String("op", op))
		return status.Error(codes.NotFound, "sheet not found")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) ListSheets(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	runID, err := s.dashboard.LatestRunID(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "ListSheets", err)
	}

	names, err := FindAndCache(ctx, s.reads, s.scopedKey(ctx, cacheKeySheets, runID), func(fetchCtx context.Context) ([]string, error) {
		return s.dashboard.ListSheets(fetchCtx, runID)
	})
	if err != nil {
		return nil, s.handleError(ctx, "ListSheets", err)
	}

	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode sheets: %v", err)
	}
	return list, nil
}

func (s *GRPCHandlers) GetSheetChart(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	name := strings.TrimSpace(req.GetValue())
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "sheet name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	runID, err := s.dashboard.LatestRunID(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "GetSheetChart", err)
	}

	chart, err := FindAndCache(ctx, s.reads, s.scopedKey(ctx, cacheKeyChart, runID, name), func(fetchCtx context.Context) (service.SheetChart, error) {
		return s.dashboard.GetSheetChart(fetchCtx, runID, name)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetSheetChart", err)
	}

	out, err := chartToStruct(chart)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode chart: %v", err)
	}
	return out, nil
}

func chartToStruct(chart service.SheetChart) (*structpb.Struct, error) {
	agents := make([]any, len(chart.Labels))
	for i, label := range chart.Labels {
		agents[i] = map[string]any{
			"label":          label,
			"total":          chart.Totals[i],
			"weighted_score": chart.WeightedScores[i],
		}
	}
	s, err := structpb.NewStruct(map[string]any{
		"run_id": chart.RunID,
		"sheet":  chart.Sheet,
		"empty":  chart.Empty,
		"agents": agents,
	})
	if err != nil {
		return nil, fmt.Errorf("chart %q: %w", chart.Sheet, err)
	}
	return s, nil
}
