package lightsengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sudorandom/donation-lights/pkg/geo"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// sumByKind adds up counter data points, keyed by their kind attribute.
func sumByKind(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value("kind")
		out[kind.AsString()] += dp.Value
	}
	return out
}

func TestMetricsRecordPlacement(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	opts := DefaultOptions()
	opts.Width, opts.Height, opts.Scale = 800, 400, 160
	opts.Seed = 1
	opts.Now = clock.Now
	opts.MeterProvider = mp
	e := NewEngine(opts)
	e.SetSurface(&fakeSurface{w: 800, h: 400})

	e.SetMap(geo.NewMap([]*geo.Country{
		geo.NewCountry(map[string]string{"fill": "#000"}, square(0, 0, 10)),
	}))
	e.SetAmount(500)
	for i := 0; i < 3; i++ {
		e.Tick(clock.Now())
	}

	got := collect(t, reader)
	require.Contains(t, got, "lights.placement.shortfall")
	assert.Equal(t, int64(30), sumByKind(t, got["lights.placement.shortfall"])[""])
	require.Contains(t, got, "lights.pending")
	gauge, ok := got["lights.pending"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(10), gauge.DataPoints[0].Value)

	e.SetMap(testMap())
	drain(e, clock, 5)
	e.SetAmount(600)
	e.Tick(clock.Now())
	require.Equal(t, 12, e.Count())

	got = collect(t, reader)
	placed := sumByKind(t, got["lights.points.placed"])
	assert.Equal(t, int64(10), placed["regular"])
	assert.Equal(t, int64(2), placed["highlighted"])
	assert.Equal(t, int64(e.Count()), placed["regular"]+placed["highlighted"])
	assert.Equal(t, int64(30), sumByKind(t, got["lights.placement.shortfall"])[""], "no shortfall once the map has land")
}

func TestMetricsNilSafe(t *testing.T) {
	var em *engineMetrics
	assert.NotPanics(t, func() { em.record(StepResult{Requested: 3}, 3) })
}
