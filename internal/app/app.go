package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/godilite/nps-summary/internal/config"
	handler "github.com/godilite/nps-summary/internal/grpc"
	"github.com/godilite/nps-summary/internal/normalize"
	"github.com/godilite/nps-summary/internal/pipeline"
	"github.com/godilite/nps-summary/internal/repository"
	"github.com/godilite/nps-summary/internal/service"
	"github.com/godilite/nps-summary/internal/spreadsheet"
	"github.com/godilite/nps-summary/pkg/cache"
	dbbuilder "github.com/godilite/nps-summary/pkg/database"
	grpcsrv "github.com/godilite/nps-summary/pkg/grpc/server"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	countries  []pipeline.Country
	reports    *service.ReportService
	outputPath string
	cache      handler.Cacher
	grpcServer *grpcsrv.Server
}

// CountriesFromConfig maps configured countries to pipeline definitions.
func CountriesFromConfig(cfgs []config.CountryConfig) []pipeline.Country {
	return lo.Map(cfgs, func(c config.CountryConfig, _ int) pipeline.Country {
		return pipeline.Country{
			Code:           c.Code,
			Source:         c.Source,
			TimestampField: c.TimestampField,
			AgentField:     c.AgentField,
			RatingField:    c.RatingField,
			IDField:        c.IDField,
			Roster:         normalize.Roster(c.Roster),
			Separators:     c.Separators,
		}
	})
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	countryCfgs, err := config.LoadCountries(cfg.CountriesFile)
	if err != nil {
		return nil, fmt.Errorf("country config failed: %w", err)
	}
	countries := CountriesFromConfig(countryCfgs)
	logger.Info("Countries loaded",
		zap.Strings("countries", lo.Map(countries, func(c pipeline.Country, _ int) string { return c.Code })))

	if err := ensureDBDir(cfg); err != nil {
		return nil, err
	}
	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("driver", cfg.DBDriver), zap.String("path", cfg.DBPath))

	reportRepo := repository.NewReportRepository(dbPool, cfg.DBDriver)
	if err := reportRepo.Migrate(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	// Workbook last so a failed export can discard the stored run.
	exporter := spreadsheet.NewExporter(cfg.OutputPath)
	reports := service.NewReportService(
		spreadsheet.NewSource(cfg.SourceDir),
		logger,
		[]service.ReportSink{reportRepo, exporter},
	)

	a := &App{
		logger:     logger,
		dbPool:     dbPool,
		countries:  countries,
		reports:    reports,
		outputPath: exporter.Path(),
	}

	if !cfg.DashboardEnabled {
		return a, nil
	}

	if err := a.initDashboard(ctx, cfg, reportRepo); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) initDashboard(ctx context.Context, cfg *config.Config, repo service.ReportRepository) error {
	if cfg.RedisAddr == "" {
		a.cache = cache.Nop{}
		a.logger.Info("Cache disabled")
	} else {
		cacheClient, err := cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			return fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = cacheClient
		a.logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	}

	dashboard := service.NewDashboardService(repo, a.logger)
	grpcHandlers := handler.NewGRPCHandlers(dashboard, a.cache, a.logger, 10*time.Minute)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(a.logger),
		grpcsrv.WithLogging(true),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.DashboardServiceName, func(r grpc.ServiceRegistrar) {
		handler.RegisterDashboardServer(r, grpcHandlers)
	})
	a.grpcServer = grpcServer
	return nil
}

// Run generates the report once. With the dashboard enabled it then serves
// until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")
	defer a.close()

	rep, err := a.reports.Generate(ctx, a.countries)
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}
	a.logger.Info("report written",
		zap.String("run_id", rep.RunID),
		zap.String("output", a.outputPath),
		zap.Int("sheets", len(rep.Sheets())))

	if a.grpcServer == nil {
		return nil
	}

	errc := a.grpcServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		a.logger.Info("application shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		a.logger.Info("application shutting down", zap.Error(ctx.Err()))
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("shutdown completed but deadline exceeded", zap.Error(err))
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	if serveErr != nil {
		return fmt.Errorf("gRPC server failed: %w", serveErr)
	}
	return nil
}

func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// ensureDBDir creates the parent directory of a sqlite database file.
func ensureDBDir(cfg *config.Config) error {
	if !dbbuilder.IsSQLite(cfg.DBDriver) ||
		strings.Contains(cfg.DBPath, ":memory:") ||
		strings.HasPrefix(cfg.DBPath, "file:") {
		return nil
	}
	dir := filepath.Dir(cfg.DBPath)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
