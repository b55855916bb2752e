package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/godilite/nps-summary/internal/grpc/mocks"
	"github.com/godilite/nps-summary/internal/service"
	"github.com/godilite/nps-summary/pkg/grpc/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func startDashboard(t *testing.T, dash DashboardService) *DashboardClient {
	t.Helper()

	srv, err := server.New(
		server.WithHost("127.0.0.1"),
		server.WithPort(0),
		server.WithLogger(zaptest.NewLogger(t)),
		server.WithLogging(true),
	)
	require.NoError(t, err)

	handlers := NewGRPCHandlers(dash, nil, zap.NewNop(), time.Minute)
	srv.RegisterServiceWithHealth(DashboardServiceName, func(r grpc.ServiceRegistrar) {
		RegisterDashboardServer(r, handlers)
	})
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(srv.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: DashboardServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	return NewDashboardClient(conn)
}

func TestDashboardRoundTrip(t *testing.T) {
	dash := &mocks.MockDashboardService{
		ListSheetsFunc: func(ctx context.Context, runID string) ([]string, error) {
			return []string{"SG Q1", "SG Q2", "SG Q3", "SG Q4"}, nil
		},
		GetSheetChartFunc: func(ctx context.Context, runID, name string) (service.SheetChart, error) {
			if name != "SG Q1" {
				return service.SheetChart{}, service.ErrSheetNotFound
			}
			return service.SheetChart{
				RunID:          runID,
				Sheet:          name,
				Labels:         []string{"Mel"},
				Totals:         []int{2},
				WeightedScores: []int{9},
			}, nil
		},
	}
	client := startDashboard(t, dash)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("list sheets", func(t *testing.T) {
		names, err := client.ListSheets(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"SG Q1", "SG Q2", "SG Q3", "SG Q4"}, names)
	})

	t.Run("sheet chart", func(t *testing.T) {
		chart, err := client.GetSheetChart(ctx, "SG Q1")

		require.NoError(t, err)
		assert.Equal(t, "run-1", chart.GetFields()["run_id"].GetStringValue())
		agents := chart.GetFields()["agents"].GetListValue().GetValues()
		require.Len(t, agents, 1)
		assert.Equal(t, 9.0, agents[0].GetStructValue().GetFields()["weighted_score"].GetNumberValue())
	})

	t.Run("unknown sheet maps to not found", func(t *testing.T) {
		_, err := client.GetSheetChart(ctx, "MY Raw")

		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}
