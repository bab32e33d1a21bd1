package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	googleGrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T, checks map[string]Check) (*HealthServer, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	hs := NewHealthServer(checks, time.Hour, zap.NewNop())

	go func() {
		_ = hs.Serve(lis)
	}()
	t.Cleanup(hs.GracefulStop)

	conn, err := googleGrpc.NewClient(
		"passthrough:///bufnet",
		googleGrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		googleGrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return hs, healthpb.NewHealthClient(conn)
}

func status(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)

	return resp.GetStatus()
}

func TestHealthServer_ReflectsChecks(t *testing.T) {
	var dbDown atomic.Bool

	hs, client := startHealthServer(t, map[string]Check{
		"postgres": func(context.Context) error {
			if dbDown.Load() {
				return errors.New("connection refused")
			}
			return nil
		},
		"redis": func(context.Context) error { return nil },
	})

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, ""))

	require.True(t, hs.CheckOnce(context.Background()))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, ""))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, "postgres"))

	dbDown.Store(true)

	require.False(t, hs.CheckOnce(context.Background()))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, ""))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, "postgres"))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, "redis"))
}

func TestHealthServer_WatchStopsWithContext(t *testing.T) {
	hs, client := startHealthServer(t, map[string]Check{
		"postgres": func(context.Context) error { return nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		hs.Watch(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
