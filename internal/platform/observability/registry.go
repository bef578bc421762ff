package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Registry keeps counter totals for exposition at /metrics. RecordMetric
// writes here and mirrors the same increment to OpenTelemetry.
type Registry struct {
	mu     sync.RWMutex
	values map[string]float64
}

func NewRegistry() *Registry {
	return &Registry{values: make(map[string]float64)}
}

// seriesKey renders name{k=v,...} with labels sorted by key.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

func (r *Registry) Add(name string, value float64, labels map[string]string) {
	key := seriesKey(name, labels)
	r.mu.Lock()
	r.values[key] += value
	r.mu.Unlock()
}

// Value returns the total of one series; zero if it was never recorded.
func (r *Registry) Value(name string, labels map[string]string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[seriesKey(name, labels)]
}

func (r *Registry) Snapshot() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// SnapshotLines returns "series value" lines sorted by series.
func (r *Registry) SnapshotLines() []string {
	snapshot := r.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+" "+strconv.FormatFloat(snapshot[k], 'f', -1, 64))
	}
	return lines
}

func (r *Registry) Reset() {
	r.mu.Lock()
	r.values = make(map[string]float64)
	r.mu.Unlock()
}

var defaultRegistry = NewRegistry()

// Default is the process-wide registry fed by RecordMetric.
func Default() *Registry {
	return defaultRegistry
}
