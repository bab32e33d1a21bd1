package grpc

import (
	"context"
	"net"
	"sort"
	"time"

	"github.com/djdiptayan1/HRone/pkg/mylogger"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	googleGrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// HealthServer serves grpc.health.v1 for the whole process ("") and for
// each named dependency check.
type HealthServer struct {
	server   *googleGrpc.Server
	health   *health.Server
	checks   map[string]Check
	names    []string
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHealthServer(checks map[string]Check, interval time.Duration, logger *zap.Logger) *HealthServer {
	s := googleGrpc.NewServer(
		googleGrpc.StatsHandler(otelgrpc.NewServerHandler()),
		googleGrpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
		googleGrpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	grpc_prometheus.Register(s)

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	sort.Strings(names)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server:   s,
		health:   hs,
		checks:   checks,
		names:    names,
		interval: interval,
		timeout:  2 * time.Second,
		logger:   logger,
	}
}

// CheckOnce runs every check and publishes the result. The process is
// SERVING only while all checks pass.
func (h *HealthServer) CheckOnce(ctx context.Context) bool {
	healthy := true

	for _, name := range h.names {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := h.checks[name](checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING

			mylogger.Warn(ctx, h.logger, "health check failed", zap.String("check", name), zap.Error(err))
		}

		h.health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", overall)

	return healthy
}

// Watch re-runs the checks every interval until ctx is cancelled.
func (h *HealthServer) Watch(ctx context.Context) {
	h.CheckOnce(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CheckOnce(ctx)
		}
	}
}

func (h *HealthServer) Serve(lis net.Listener) error {
	return h.server.Serve(lis)
}

// GracefulStop flips every status to NOT_SERVING before draining the server.
func (h *HealthServer) GracefulStop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
