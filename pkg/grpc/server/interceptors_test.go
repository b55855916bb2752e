package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/nps.v1.Dashboard/ListSheets"}

	t.Run("successful request logs peer address", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		interceptor := LoggingInterceptor(zap.New(core))

		ctx := peer.NewContext(context.Background(), &peer.Peer{
			Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 41000},
		})
		resp, err := interceptor(ctx, "req", info, func(ctx context.Context, req any) (any, error) {
			return "success", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "success", resp)

		done := logs.FilterMessage("gRPC request completed").All()
		require.Len(t, done, 1)
		fields := done[0].ContextMap()
		assert.Equal(t, "10.0.0.7:41000", fields["client_addr"])
		assert.Equal(t, info.FullMethod, fields["method"])
		assert.NotEmpty(t, fields["request_id"])
	})

	t.Run("not found is logged as rejected", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		interceptor := LoggingInterceptor(zap.New(core))

		_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.NotFound, "no report generated yet")
		})

		assert.Equal(t, codes.NotFound, status.Code(err))
		assert.Equal(t, 1, logs.FilterMessage("gRPC request rejected").Len())
		assert.Equal(t, 0, logs.FilterMessage("gRPC request failed").Len())
		assert.Equal(t, "unknown", logs.All()[0].ContextMap()["client_addr"])
	})

	t.Run("internal error is logged as failure", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		interceptor := LoggingInterceptor(zap.New(core))

		_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.Internal, "database error")
		})

		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Equal(t, 1, logs.FilterMessage("gRPC request failed").Len())
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/nps.v1.Dashboard/GetSheetChart"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("index out of range")
	})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestNew_InvalidPort(t *testing.T) {
	_, err := New(WithPort(70000))
	assert.ErrorContains(t, err, "invalid port")

	_, err = New(WithPort(-1))
	assert.Error(t, err)
}

func TestServerBuilderWithLogging(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server, err := New(
		WithHost("127.0.0.1"),
		WithPort(0),
		WithLogger(logger),
		WithLogging(true),
		WithReflection(true),
	)
	require.NoError(t, err)

	assert.NotNil(t, server.grpcServer)
	assert.NotNil(t, server.logger)
	assert.NotNil(t, server.healthServer)
	assert.NotEqual(t, 0, server.Addr().(*net.TCPAddr).Port, "ephemeral port is resolved")

	errc := server.Start()

	conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthClient := healthpb.NewHealthClient(conn)
	resp, err := healthClient.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelShutdown()
	require.NoError(t, server.Shutdown(shutdownCtx))

	_, open := <-errc
	assert.False(t, open, "serve loop exits cleanly on shutdown")
}
