package eventbus

import "time"

// Topics.
const (
	EventAnalysisCompleted = "detect:completed"
	EventRequestRejected   = "detect:rejected"
	EventRateLimited       = "ratelimit:rejected"
)

// AnalysisEvent is published after a verdict was returned.
type AnalysisEvent struct {
	RequestID string        `json:"request_id"`
	Label     string        `json:"label"`
	Score     float64       `json:"score"`
	SizeBytes int64         `json:"size_bytes"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RejectionEvent is published for every request the pipeline turned away.
type RejectionEvent struct {
	RequestID string `json:"request_id"`
	Stage     string `json:"stage"` // upload, antibot, detector
	Code      string `json:"code"`
	ClientIP  string `json:"client_ip,omitempty"`
}

// RateLimitEvent is published when the limiter denies a request.
type RateLimitEvent struct {
	Route    string `json:"route"`
	Window   string `json:"window"`
	Code     string `json:"code"`
	ClientIP string `json:"client_ip,omitempty"`
}
