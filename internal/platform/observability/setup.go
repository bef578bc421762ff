package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config captures observability toggles.
type Config struct {
	Enabled bool
	// MeterName scopes the OpenTelemetry instruments.
	MeterName string
}

// ShutdownFunc allows callers to tear down any observability exporters.
type ShutdownFunc func(context.Context) error

var (
	stateMu  sync.RWMutex
	logger   *slog.Logger
	state    Config
	meter    metric.Meter
	counters map[string]metric.Float64Counter
)

func current() (*slog.Logger, Config, metric.Meter) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return logger, state, meter
}

// Setup wires span/metric logging, clears the local counter registry and
// binds the OpenTelemetry meter from the global provider. Totals are served
// from the registry; the OTel mirror exports only when an SDK is installed.
func Setup(ctx context.Context, cfg Config, l *slog.Logger) (ShutdownFunc, error) {
	if cfg.MeterName == "" {
		cfg.MeterName = "alejo-lab-api"
	}

	stateMu.Lock()
	logger = l
	state = cfg
	meter = otel.GetMeterProvider().Meter(cfg.MeterName)
	counters = make(map[string]metric.Float64Counter)
	stateMu.Unlock()
	defaultRegistry.Reset()

	if l != nil {
		if cfg.Enabled {
			l.InfoContext(ctx, "[OBSERVABILITY] debug spans enabled")
		} else {
			l.InfoContext(ctx, "[OBSERVABILITY] debug spans disabled")
		}
	}

	return func(context.Context) error {
		stateMu.Lock()
		logger = nil
		meter = nil
		counters = nil
		stateMu.Unlock()
		return nil
	}, nil
}

func counter(name string) metric.Float64Counter {
	stateMu.RLock()
	c := counters[name]
	m := meter
	stateMu.RUnlock()
	if c != nil || m == nil {
		return c
	}

	stateMu.Lock()
	defer stateMu.Unlock()
	if counters == nil {
		return nil
	}
	if c = counters[name]; c == nil {
		created, err := m.Float64Counter(name)
		if err != nil {
			return nil
		}
		counters[name] = created
		c = created
	}
	return c
}
