package detector

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"alejo-lab-api/internal/domain/upload"
	"alejo-lab-api/internal/domain/verdict"
	"alejo-lab-api/internal/platform/logging"
	"alejo-lab-api/internal/platform/observability"
)

const (
	DefaultURL    = "https://api.sightengine.com/1.0/check.json"
	DefaultModels = "genai"
)

// Score is the upstream probability plus the metadata echoed to callers.
type Score struct {
	Probability float64
	RequestID   string
	Timestamp   any
	Operations  int
	Status      string
}

// Detector classifies one uploaded image.
type Detector interface {
	Detect(ctx context.Context, img *upload.Image) (Score, error)
}

type Config struct {
	URL       string
	APIUser   string
	APISecret string
	Models    string
	Timeout   time.Duration
}

type checkResponse struct {
	Status  string `json:"status"`
	Request *struct {
		ID         string `json:"id"`
		Timestamp  any    `json:"timestamp"`
		Operations int    `json:"operations"`
	} `json:"request"`
	Type *struct {
		AIGenerated *float64 `json:"ai_generated"`
	} `json:"type"`
}

// Sightengine calls the check.json endpoint once per image. No retries.
type Sightengine struct {
	cfg    Config
	client *resty.Client
	logger *logging.Logger
}

func NewSightengine(cfg Config, logger *logging.Logger) *Sightengine {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Models == "" {
		cfg.Models = DefaultModels
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	return &Sightengine{cfg: cfg, client: client, logger: logger}
}

func (s *Sightengine) Detect(ctx context.Context, img *upload.Image) (score Score, err error) {
	if s.cfg.APIUser == "" || s.cfg.APISecret == "" {
		s.logger.ErrorTag("DETECTOR", "SIGHTENGINE_USER or SIGHTENGINE_SECRET is not set")
		return Score{}, failure(CodeMisconfigured, nil)
	}
	if img == nil {
		return Score{}, failure(CodeFailed, fmt.Errorf("nil image"))
	}

	ctx, end := observability.StartSpan(ctx, "detector", "detect")
	defer func() { end(err) }()

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"models":     s.cfg.Models,
			"api_user":   s.cfg.APIUser,
			"api_secret": s.cfg.APISecret,
		}).
		SetMultipartField("media", img.UploadName(), img.ContentType, bytes.NewReader(img.Data)).
		Post(s.cfg.URL)
	if err != nil {
		code := CodeForTransport(err)
		s.logger.WarnTag("DETECTOR", "request failed", "code", code, "error", err.Error(), "elapsed", time.Since(start))
		return Score{}, failure(code, err)
	}
	if resp.IsError() {
		code := CodeForStatus(resp.StatusCode())
		s.logger.WarnTag("DETECTOR", "upstream rejected request", "code", code, "status", resp.StatusCode())
		return Score{}, failure(code, fmt.Errorf("sightengine status %d", resp.StatusCode()))
	}

	score, err = parseScore(resp.Body())
	if err != nil {
		s.logger.WarnTag("DETECTOR", "unexpected upstream body", "error", err.Error())
		return Score{}, failure(CodeUnexpectedResponse, err)
	}

	s.logger.DebugTag("DETECTOR", "analysis done",
		"request_id", score.RequestID,
		"score", score.Probability,
		"elapsed", time.Since(start),
	)
	return score, nil
}

func parseScore(body []byte) (Score, error) {
	var parsed checkResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return Score{}, fmt.Errorf("decode body: %w", err)
	}
	if parsed.Type == nil || parsed.Type.AIGenerated == nil {
		return Score{}, fmt.Errorf("type.ai_generated missing")
	}
	p := *parsed.Type.AIGenerated
	if !verdict.Valid(p) {
		return Score{}, fmt.Errorf("type.ai_generated out of range: %v", p)
	}

	score := Score{Probability: p, Status: parsed.Status}
	if parsed.Request != nil {
		score.RequestID = parsed.Request.ID
		score.Timestamp = parsed.Request.Timestamp
		score.Operations = parsed.Request.Operations
	}
	return score, nil
}
