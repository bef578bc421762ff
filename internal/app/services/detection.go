package services

import (
	"context"
	"fmt"
	"time"

	"alejo-lab-api/internal/domain/antibot"
	"alejo-lab-api/internal/domain/detector"
	"alejo-lab-api/internal/domain/eventbus"
	"alejo-lab-api/internal/domain/upload"
	"alejo-lab-api/internal/domain/verdict"
	platformerrors "alejo-lab-api/internal/platform/errors"
	"alejo-lab-api/internal/platform/logging"
)

// Rejection stages reported on the event bus.
const (
	StageUpload   = "upload"
	StageAntiBot  = "antibot"
	StageDetector = "detector"
)

// DetectionService runs one admitted request through validation,
// anti-bot verification, upstream detection and normalization.
type DetectionService struct {
	validator *upload.Validator
	verifier  antibot.Verifier
	detector  detector.Detector
	events    eventbus.Publisher
	logger    *logging.Logger
}

type DetectionConfig struct {
	Validator *upload.Validator
	Verifier  antibot.Verifier
	Detector  detector.Detector
	Events    eventbus.Publisher
	Logger    *logging.Logger
}

type DetectionRequest struct {
	Image     *upload.Image
	Token     string
	ClientIP  string
	RequestID string
}

type DetectionResult struct {
	Verdict verdict.Verdict
	Score   detector.Score
	Media   *upload.Image
}

func NewDetectionService(config *DetectionConfig) (*DetectionService, error) {
	if config == nil || config.Verifier == nil || config.Detector == nil {
		return nil, fmt.Errorf("detection service requires a verifier and a detector")
	}
	validator := config.Validator
	if validator == nil {
		validator = upload.NewValidator(config.Logger)
	}
	return &DetectionService{
		validator: validator,
		verifier:  config.Verifier,
		detector:  config.Detector,
		events:    config.Events,
		logger:    config.Logger,
	}, nil
}

// Analyze never calls an upstream for input the validator rejects.
func (s *DetectionService) Analyze(ctx context.Context, req DetectionRequest) (*DetectionResult, error) {
	start := time.Now()

	if err := s.validator.Validate(req.Image); err != nil {
		return nil, s.reject(req, StageUpload, err)
	}

	if _, err := s.verifier.Verify(ctx, req.Token, req.ClientIP); err != nil {
		return nil, s.reject(req, StageAntiBot, err)
	}

	score, err := s.detector.Detect(ctx, req.Image)
	if err != nil {
		return nil, s.reject(req, StageDetector, err)
	}

	v, err := verdict.Normalize(score.Probability)
	if err != nil {
		wrapped := platformerrors.Coded(platformerrors.KindUpstream, "detector.normalize",
			detector.CodeUnexpectedResponse, "Respuesta inesperada de Sightengine.", err)
		return nil, s.reject(req, StageDetector, wrapped)
	}

	s.publish(eventbus.EventAnalysisCompleted, eventbus.AnalysisEvent{
		RequestID: req.RequestID,
		Label:     v.Label,
		Score:     score.Probability,
		SizeBytes: req.Image.Size,
		Elapsed:   time.Since(start),
	})

	return &DetectionResult{Verdict: v, Score: score, Media: req.Image}, nil
}

func (s *DetectionService) reject(req DetectionRequest, stage string, err error) error {
	code := ""
	if typed, ok := platformerrors.As(err); ok {
		code = typed.Code
	}
	s.logger.DebugTag("HTTP", "pipeline rejected request",
		"request_id", req.RequestID,
		"stage", stage,
		"code", code,
	)
	s.publish(eventbus.EventRequestRejected, eventbus.RejectionEvent{
		RequestID: req.RequestID,
		Stage:     stage,
		Code:      code,
		ClientIP:  req.ClientIP,
	})
	return err
}

func (s *DetectionService) publish(topic string, event any) {
	if s.events == nil {
		return
	}
	s.events.PublishAsync(topic, event)
}
