package eventbus

import (
	"context"

	"alejo-lab-api/internal/platform/logging"
	"alejo-lab-api/internal/platform/observability"
)

// Metric names recorded by the subscribers below.
const (
	MetricAnalyses   = "detect_analyses_total"
	MetricRejections = "detect_rejections_total"
	MetricRateLimits = "ratelimit_rejections_total"
)

// SetupMetricHandlers turns pipeline events into counters and audit log lines.
func SetupMetricHandlers(bus *Bus, logger *logging.Logger) error {
	if err := bus.Subscribe(EventAnalysisCompleted, func(e AnalysisEvent) {
		observability.RecordMetric(context.Background(), MetricAnalyses, 1, map[string]string{"label": e.Label})
		logger.InfoTag("EVENTS", "analysis completed",
			"request_id", e.RequestID,
			"label", e.Label,
			"score", e.Score,
			"size_bytes", e.SizeBytes,
			"elapsed", e.Elapsed,
		)
	}); err != nil {
		return err
	}

	if err := bus.Subscribe(EventRequestRejected, func(e RejectionEvent) {
		observability.RecordMetric(context.Background(), MetricRejections, 1, map[string]string{
			"stage": e.Stage,
			"code":  e.Code,
		})
		logger.InfoTag("EVENTS", "request rejected",
			"request_id", e.RequestID,
			"stage", e.Stage,
			"code", e.Code,
			"ip", e.ClientIP,
		)
	}); err != nil {
		return err
	}

	return bus.Subscribe(EventRateLimited, func(e RateLimitEvent) {
		observability.RecordMetric(context.Background(), MetricRateLimits, 1, map[string]string{
			"route":  e.Route,
			"window": e.Window,
		})
	})
}
