package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alejo-lab-api/internal/app/services"
	"alejo-lab-api/internal/domain/upload"
	platformerrors "alejo-lab-api/internal/platform/errors"
	"alejo-lab-api/internal/platform/logging"
	httptransport "alejo-lab-api/internal/transport/http"
)

// formOverhead leaves room for the token field and multipart framing on top of the file cap.
const formOverhead = 64 * 1024

// Service is the HTTP transport for the detection pipeline.
type Service struct {
	pipeline   *services.DetectionService
	logger     *logging.Logger
	maxMB      int
	extractors []tokenExtractor
	proxyHops  int
}

type Options struct {
	Pipeline       *services.DetectionService
	Logger         *logging.Logger
	MaxUploadMB    int
	TokenField     string
	TrustProxyHops int
}

func NewService(opts Options) (*Service, error) {
	if opts.Pipeline == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "detect.new", "detection pipeline is required")
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 8
	}
	if opts.TokenField == "" {
		opts.TokenField = "turnstileToken"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		pipeline:   opts.Pipeline,
		logger:     logger,
		maxMB:      opts.MaxUploadMB,
		extractors: tokenExtractors(opts.TokenField),
		proxyHops:  opts.TrustProxyHops,
	}, nil
}

func (s *Service) maxBytes() int64 {
	return int64(s.maxMB) * 1024 * 1024
}

// Register mounts POST /detect/ai.
func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.POST("/detect/ai", s.handleDetect)
	s.logger.InfoTag("HTTP", "detect routes registered", "max_upload_mb", s.maxMB)
	return nil
}

// handleDetect
// @Summary Estimate whether an image was generated by AI
// @Tags Detect
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "JPG, PNG or WebP image"
// @Param turnstileToken formData string false "anti-bot token"
// @Param x-turnstile-token header string false "anti-bot token"
// @Param cf-turnstile-response header string false "anti-bot token"
// @Success 200 {object} Response
// @Failure 400 {object} object
// @Failure 403 {object} object
// @Failure 413 {object} object
// @Failure 429 {object} object
// @Failure 503 {object} object
// @Router /detect/ai [post]
func (s *Service) handleDetect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBytes()+formOverhead)
	defer func() {
		if form := c.Request.MultipartForm; form != nil {
			_ = form.RemoveAll()
		}
	}()

	img, err := s.readImage(c)
	if err != nil {
		httptransport.RespondError(c, s.logger, err)
		return
	}

	result, err := s.pipeline.Analyze(c.Request.Context(), services.DetectionRequest{
		Image:     img,
		Token:     extractToken(c, s.extractors),
		ClientIP:  httptransport.ClientIP(c.Request, s.proxyHops),
		RequestID: httptransport.RequestID(c),
	})
	if err != nil {
		httptransport.RespondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Result: ResultData{
			AIGenerated: result.Score.Probability,
			Percentage:  result.Verdict.Percentage,
			Label:       result.Verdict.Label,
			Message:     result.Verdict.Message,
		},
		Analysis: AnalysisData{
			RequestID:  result.Score.RequestID,
			Timestamp:  result.Score.Timestamp,
			Status:     result.Score.Status,
			Operations: result.Score.Operations,
		},
		Media: MediaData{
			Filename:  result.Media.Filename,
			Mimetype:  result.Media.ContentType,
			SizeBytes: result.Media.Size,
		},
		Disclaimer: result.Verdict.Disclaimer,
	})
}

// readImage returns (nil, nil) when the request carries no image part.
func (s *Service) readImage(c *gin.Context) (*upload.Image, error) {
	if err := c.Request.ParseMultipartForm(s.maxBytes() + formOverhead); err != nil {
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		case isTooLarge(err):
			return nil, upload.TooLarge(s.maxMB, err)
		default:
			return nil, upload.ProcessingFailed(err)
		}
	}

	file, header, err := c.Request.FormFile(upload.FieldName)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, upload.ProcessingFailed(err)
	}
	defer file.Close()

	if header.Size > s.maxBytes() {
		return nil, upload.TooLarge(s.maxMB, fmt.Errorf("file is %d bytes", header.Size))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes()+1))
	if err != nil {
		return nil, upload.ProcessingFailed(err)
	}
	if int64(len(data)) > s.maxBytes() {
		return nil, upload.TooLarge(s.maxMB, fmt.Errorf("file exceeds %d bytes", s.maxBytes()))
	}

	return &upload.Image{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
		Size:        int64(len(data)),
	}, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
