package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vedangtiwari01-dev/vs-demo/internal/metrics"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sum(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	s, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "not an int64 sum: %T", data)
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRegistry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	ctx := context.Background()

	reg, err := metrics.NewRegistry(provider, "auditor-test")
	require.NoError(t, err)

	reg.RecordDetection(ctx, 40, 2, 115)
	reg.RecordCleaning(ctx, 100, 15, 87.5)
	reg.RecordStage(ctx, "cluster", 12*time.Millisecond)
	reg.RecordRun(ctx, metrics.RunStats{Applied: true, Method: "KMeans", Fallback: true, Anomalies: 10, CompressionRatio: 1.33})
	reg.RecordRun(ctx, metrics.RunStats{Applied: false})

	got := collect(t, reader)

	assert.Equal(t, int64(40), sum(t, got["auditor.detection.cases_evaluated"]))
	assert.Equal(t, int64(2), sum(t, got["auditor.detection.cases_failed"]))
	assert.Equal(t, int64(115), sum(t, got["auditor.detection.deviations"]))
	assert.Equal(t, int64(15), sum(t, got["auditor.cleaning.duplicates_removed"]))
	assert.Equal(t, int64(10), sum(t, got["auditor.anomaly.flagged"]))
	assert.Equal(t, int64(1), sum(t, got["auditor.clustering.fallbacks"]))
	assert.Equal(t, int64(1), sum(t, got["auditor.pipeline.analysis_bypassed"]))
	assert.Equal(t, int64(2), sum(t, got["auditor.pipeline.runs"]))

	gauge, ok := got["auditor.cleaning.quality_score"].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, 87.5, gauge.DataPoints[0].Value)

	hist, ok := got["auditor.pipeline.stage_duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 12.0, hist.DataPoints[0].Sum, 1e-9)
}

func TestNewRegistry_GlobalProvider(t *testing.T) {
	reg, err := metrics.NewRegistry(nil, "auditor-test")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		reg.RecordRun(context.Background(), metrics.RunStats{Applied: true, Method: "DBSCAN", CompressionRatio: 2})
	})
}
