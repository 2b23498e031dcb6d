package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/sudorandom/donation-lights/pkg/config"
)

const serviceName = "donation-lights"

// Metrics owns the meter provider installed from the metrics config.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	out      io.Closer
}

// SetupMetrics installs a global meter provider that periodically writes JSON
// to cfg.File (stderr when empty). When metrics are disabled it returns a
// Metrics whose provider is a no-op.
func SetupMetrics(cfg config.MetricsConfig) (*Metrics, error) {
	m := &Metrics{}
	if !cfg.Enabled {
		return m, nil
	}

	var w io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening metrics file: %w", err)
		}
		w, m.out = f, f
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		m.closeOut()
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		m.closeOut()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	m.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(m.provider)
	log.Info().Str("file", cfg.File).Dur("interval", interval).Msg("Metrics enabled")
	return m, nil
}

// MeterProvider is the provider to hand to the engine.
func (m *Metrics) MeterProvider() metric.MeterProvider {
	if m == nil || m.provider == nil {
		return noop.NewMeterProvider()
	}
	return m.provider
}

func (m *Metrics) Enabled() bool { return m != nil && m.provider != nil }

// Shutdown flushes pending metrics and closes the output file.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	err := m.provider.Shutdown(ctx)
	if cerr := m.closeOut(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return fmt.Errorf("metrics shutdown failed: %w", err)
	}
	return nil
}

func (m *Metrics) closeOut() error {
	if m.out == nil {
		return nil
	}
	err := m.out.Close()
	m.out = nil
	return err
}
