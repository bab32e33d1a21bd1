package metrics_test

import (
	"testing"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.OrderPlaced()
	m.OrderPlaced()
	m.OrderFailed(domain.KindInsufficientStock)
	m.SessionCreated()
	m.SessionInvalidated()
	m.ObserveHTTP("GET", "/api/v1/products", 200, 15*time.Millisecond)

	count, err := testutil.GatherAndCount(reg,
		"shop_orders_placed_total",
		"shop_order_placement_failures_total",
		"shop_sessions_created_total",
		"shop_sessions_invalidated_total",
		"shop_http_request_duration_seconds",
	)
	require.NoError(t, err)
	require.Equal(t, 5, count)

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "shop_orders_placed_total" {
			continue
		}
		require.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	require.NotPanics(t, func() {
		m.OrderPlaced()
		m.OrderFailed(domain.KindConflict)
		m.SessionCreated()
		m.SessionInvalidated()
		m.ObserveHTTP("POST", "/", 201, time.Second)
	})
}

func TestNewRegistry_GathersRuntimeMetrics(t *testing.T) {
	reg := metrics.NewRegistry()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
