package httptransport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"

	_ "alejo-lab-api/internal/transport/http/docs"

	"alejo-lab-api/internal/platform/logging"
	"alejo-lab-api/internal/platform/observability"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="es">
	<head>
		<meta charset="utf-8" />
		<title>alejo-lab-api Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

// SystemService serves /health, /metrics and the API docs.
type SystemService struct {
	serviceName string
	logger      *logging.Logger
	now         func() time.Time
}

func NewSystemService(serviceName string, logger *logging.Logger) *SystemService {
	if serviceName == "" {
		serviceName = "alejo-lab-api"
	}
	return &SystemService{serviceName: serviceName, logger: logger, now: time.Now}
}

func (s *SystemService) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", s.handleMetrics)
	router.GET("/openapi.json", s.handleOpenAPI)
	router.GET("/docs", s.handleDocs)
	return nil
}

// handleHealth
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} object
// @Router /health [get]
func (s *SystemService) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   s.serviceName,
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// handleMetrics
// @Summary Counter totals, one "series value" line each
// @Tags System
// @Produce plain
// @Success 200 {string} string
// @Router /metrics [get]
func (s *SystemService) handleMetrics(c *gin.Context) {
	lines := observability.Default().SnapshotLines()
	body := strings.Join(lines, "\n")
	if body != "" {
		body += "\n"
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

func (s *SystemService) handleOpenAPI(c *gin.Context) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.logger.ErrorTag("HTTP", "render openapi document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"statusCode": http.StatusInternalServerError,
			"error":      StatusText(http.StatusInternalServerError),
			"message":    "failed to generate openapi spec",
		})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}

func (s *SystemService) handleDocs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
}
