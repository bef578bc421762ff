package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSpanAndMetricLogging(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Enabled: true}, newBufferLogger(&buf))
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer shutdown(context.Background())

	if !Enabled() {
		t.Fatalf("expected observability enabled")
	}

	_, end := StartSpan(context.Background(), "detector", "detect")
	end(errors.New("boom"))
	RecordMetric(context.Background(), "detections", 1, map[string]string{"label": "alta"})

	out := buf.String()
	for _, want := range []string{"obs span start", "obs span end", "error=boom", "metric=detections", "label=alta"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %s", want, out)
		}
	}
}

func TestSpansDisabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Enabled: false}, newBufferLogger(&buf))
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer shutdown(context.Background())

	_, end := StartSpan(context.Background(), "detector", "detect")
	end(nil)
	if strings.Contains(buf.String(), "obs span") {
		t.Fatalf("spans should not be logged when disabled: %s", buf.String())
	}
}

func TestRecordMetricWithoutSetup(t *testing.T) {
	// must not panic before Setup or after shutdown
	RecordMetric(context.Background(), "noop", 1, nil)
}

func TestRecordMetricAccumulatesInRegistry(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer shutdown(context.Background())

	RecordMetric(context.Background(), "detect_analyses_total", 1, map[string]string{"label": "alta"})
	RecordMetric(context.Background(), "detect_analyses_total", 1, map[string]string{"label": "alta"})
	RecordMetric(context.Background(), "detect_analyses_total", 1, map[string]string{"label": "baja"})
	RecordMetric(context.Background(), "http.requests", 1, map[string]string{"status": "200", "method": "GET"})

	if got := Default().Value("detect_analyses_total", map[string]string{"label": "alta"}); got != 2 {
		t.Fatalf("alta total = %v, want 2", got)
	}
	if got := Default().Value("detect_analyses_total", map[string]string{"label": "media"}); got != 0 {
		t.Fatalf("media total = %v, want 0", got)
	}

	want := []string{
		"detect_analyses_total{label=alta} 2",
		"detect_analyses_total{label=baja} 1",
		"http.requests{method=GET,status=200} 1",
	}
	lines := Default().SnapshotLines()
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected snapshot:\n%s", strings.Join(lines, "\n"))
	}
}

func TestSetupClearsRegistry(t *testing.T) {
	RecordMetric(context.Background(), "stale", 5, nil)
	shutdown, err := Setup(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer shutdown(context.Background())

	if got := Default().Value("stale", nil); got != 0 {
		t.Fatalf("expected registry reset, got %v", got)
	}
}
