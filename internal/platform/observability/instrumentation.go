package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Enabled reports whether debug spans have been toggled on.
func Enabled() bool {
	_, cfg, _ := current()
	return cfg.Enabled
}

// StartSpan records a lightweight span lifecycle around an operation.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	l, cfg, _ := current()
	if l == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	l.LogAttrs(ctx, slog.LevelDebug, "obs span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}

		l.LogAttrs(ctx, level, "obs span end", attrs...)
	}
}

// RecordMetric adds value to the local registry and the named OpenTelemetry
// counter, and logs the datapoint at debug level.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	l, _, _ := current()

	defaultRegistry.Add(name, value, labels)

	if c := counter(name); c != nil {
		attrs := make([]attribute.KeyValue, 0, len(labels))
		for k, v := range labels {
			attrs = append(attrs, attribute.String(k, v))
		}
		c.Add(ctx, value, metric.WithAttributes(attrs...))
	}

	if l == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	l.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}
