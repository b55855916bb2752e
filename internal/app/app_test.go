package app

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/godilite/nps-summary/internal/config"
	"github.com/godilite/nps-summary/internal/repository"
	"github.com/godilite/nps-summary/internal/service"
	"github.com/godilite/nps-summary/pkg/workbook"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const countriesYAML = `
countries:
  - code: SG
    source: sg.xlsx
    agent_field: Sales Executive
    rating_field: Rating
    id_field: Enquiry ID
    roster: [Jasmine, Mark]
`

func writeFixtures(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "countries.yaml"), []byte(countriesYAML), 0o644))

	ts := time.Date(time.Now().Year(), 2, 10, 9, 0, 0, 0, time.UTC).Format("02/01/2006 15:04:05")
	require.NoError(t, workbook.Write(filepath.Join(dir, "sg.xlsx"), []workbook.Table{{
		Name:   "Form Responses 1",
		Header: []string{"Timestamp", "Sales Executive", "Rating", "Enquiry ID"},
		Rows: [][]string{
			{ts, "Jasmine and Mark", "5", "E1"},
			{ts, "jasmine", "3", "E2"},
		},
	}}))

	return &config.Config{
		AppEnv:        "test",
		SourceDir:     dir,
		CountriesFile: filepath.Join(dir, "countries.yaml"),
		OutputPath:    filepath.Join(dir, "out", "summary.xlsx"),
		DBDriver:      "sqlite3",
		DBPath:        ":memory:",
	}
}

func TestCountriesFromConfig(t *testing.T) {
	countries := CountriesFromConfig([]config.CountryConfig{
		{Code: "SG", Source: "sg.xlsx", AgentField: "A", RatingField: "R", IDField: "I", Roster: []string{"Mel"}, Separators: []string{"/"}},
	})

	require.Len(t, countries, 1)
	assert.Equal(t, "SG", countries[0].Code)
	assert.Equal(t, "A", countries[0].AgentField)
	assert.Equal(t, []string{"Mel"}, []string(countries[0].Roster))
	assert.Equal(t, []string{"/"}, countries[0].Separators)
}

func TestAppRun_GeneratesReport(t *testing.T) {
	ctx := context.Background()
	cfg := writeFixtures(t)

	a, err := NewApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	repo := repository.NewReportRepository(a.dbPool, cfg.DBDriver)
	dash := service.NewDashboardService(repo, zap.NewNop())

	rep, err := a.reports.Generate(ctx, a.countries)
	require.NoError(t, err)

	tables, err := workbook.ReadAll(cfg.OutputPath)
	require.NoError(t, err)
	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
	}
	assert.Equal(t, []string{"SG Q1", "SG Q2", "SG Q3", "SG Q4", "SG Raw"}, names)
	assert.Equal(t, []string{"Sales Executive", "3", "5"}, tables[0].Header)
	assert.Equal(t, [][]string{{"Jasmine", "1", "1"}, {"Mark", "0", "1"}}, tables[0].Rows)

	runID, err := dash.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, runID)

	chart, err := dash.GetSheetChart(ctx, runID, "SG Q1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, chart.Totals)
	assert.Equal(t, []int{8, 5}, chart.WeightedScores)

	a.close()
}

func TestNewApp_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid countries file", func(t *testing.T) {
		cfg := writeFixtures(t)
		require.NoError(t, os.WriteFile(cfg.CountriesFile, []byte("countries: []"), 0o644))

		_, err := NewApp(ctx, cfg, zap.NewNop())

		assert.ErrorIs(t, err, config.ErrInvalidCountries)
	})

	t.Run("missing source aborts the run", func(t *testing.T) {
		cfg := writeFixtures(t)
		require.NoError(t, os.Remove(filepath.Join(cfg.SourceDir, "sg.xlsx")))

		a, err := NewApp(ctx, cfg, zap.NewNop())
		require.NoError(t, err)

		err = a.Run(ctx)

		assert.ErrorIs(t, err, service.ErrSourceMissing)
		_, statErr := os.Stat(cfg.OutputPath)
		assert.True(t, os.IsNotExist(statErr), "no workbook on failure")
	})

	t.Run("failed export leaves no stored run", func(t *testing.T) {
		cfg := writeFixtures(t)
		blocker := filepath.Join(cfg.SourceDir, "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		cfg.OutputPath = filepath.Join(blocker, "summary.xlsx")

		a, err := NewApp(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer a.close()

		_, err = a.reports.Generate(ctx, a.countries)

		assert.ErrorIs(t, err, service.ErrOutputFailure)
		_, err = repository.NewReportRepository(a.dbPool, cfg.DBDriver).LatestRun(ctx)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("unreachable redis fails dashboard setup", func(t *testing.T) {
		cfg := writeFixtures(t)
		cfg.DashboardEnabled = true
		cfg.RedisAddr = "127.0.0.1:1"

		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := NewApp(cctx, cfg, zap.NewNop())

		assert.ErrorContains(t, err, "cache init failed")
	})
}

func TestEnsureDBDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DBDriver: "sqlite3", DBPath: filepath.Join(dir, "data", "reports.db")}

	require.NoError(t, ensureDBDir(cfg))

	info, err := os.Stat(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, ensureDBDir(&config.Config{DBDriver: "pgx", DBPath: "postgres://x"}))
}
