package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, m.Name)
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_Counts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.Applied(ctx, "addTop")
	m.Applied(ctx, "addBottom")
	m.DecodeFailed(ctx)
	m.OutOfSync(ctx, "PopFront")
	m.Resynced(ctx)
	m.Resynced(ctx)

	got := collect(t, reader)
	assert.Equal(t, int64(2), got["queuemirror.events.applied"])
	assert.Equal(t, int64(1), got["queuemirror.decode.failures"])
	assert.Equal(t, int64(1), got["queuemirror.out_of_sync"])
	assert.Equal(t, int64(2), got["queuemirror.resyncs"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Applied(ctx, "addTop")
		m.DecodeFailed(ctx)
		m.OutOfSync(ctx, "PopBack")
		m.Resynced(ctx)
	})
}
