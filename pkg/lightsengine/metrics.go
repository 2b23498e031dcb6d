package lightsengine

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sudorandom/donation-lights/pkg/placement"
)

const instrumentationName = "github.com/sudorandom/donation-lights/pkg/lightsengine"

func meter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(instrumentationName)
}

type engineMetrics struct {
	placed    metric.Int64Counter
	shortfall metric.Int64Counter
	pending   metric.Int64ObservableGauge

	// pendingValue mirrors the scheduler counters for the collector goroutine.
	pendingValue atomic.Int64
}

func newEngineMetrics(mp metric.MeterProvider) (*engineMetrics, error) {
	m := meter(mp)
	em := &engineMetrics{}

	var err error
	em.placed, err = m.Int64Counter(
		"lights.points.placed",
		metric.WithDescription("Points added to the map"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating placed counter: %w", err)
	}

	em.shortfall, err = m.Int64Counter(
		"lights.placement.shortfall",
		metric.WithDescription("Requested points that could not be placed in a pass"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shortfall counter: %w", err)
	}

	em.pending, err = m.Int64ObservableGauge(
		"lights.pending",
		metric.WithDescription("Points waiting to be placed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pending gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(em.pending, em.pendingValue.Load())
			return nil
		},
		em.pending,
	)
	if err != nil {
		return nil, fmt.Errorf("registering pending callback: %w", err)
	}
	return em, nil
}

func (em *engineMetrics) record(res StepResult, pending int) {
	if em == nil {
		return
	}
	em.pendingValue.Store(int64(pending))
	if len(res.Added) == 0 && res.Requested == 0 {
		return
	}

	var regular, highlighted int64
	for _, p := range res.Added {
		if p.Kind == placement.Highlighted {
			highlighted++
		} else {
			regular++
		}
	}
	ctx := context.Background()
	if regular > 0 {
		em.placed.Add(ctx, regular, metric.WithAttributes(attribute.String("kind", placement.Regular.String())))
	}
	if highlighted > 0 {
		em.placed.Add(ctx, highlighted, metric.WithAttributes(attribute.String("kind", placement.Highlighted.String())))
	}
	if short := res.Requested - len(res.Added); short > 0 {
		em.shortfall.Add(ctx, int64(short))
	}
}
