package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alejo-lab-api/internal/domain/antibot"
	"alejo-lab-api/internal/domain/detector"
	"alejo-lab-api/internal/domain/ratelimit"
	"alejo-lab-api/internal/domain/upload"
	"alejo-lab-api/internal/platform/config"
	platformerrors "alejo-lab-api/internal/platform/errors"
	"alejo-lab-api/internal/platform/logging"
	"alejo-lab-api/internal/platform/observability"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		hops   int
		want   string
	}{
		{"no proxy", "203.0.113.5:1234", "1.1.1.1", 0, "203.0.113.5"},
		{"one hop no header", "10.0.0.1:1234", "", 1, "10.0.0.1"},
		{"one hop", "10.0.0.1:1234", "198.51.100.9", 1, "198.51.100.9"},
		{"one hop spoofed prefix", "10.0.0.1:1234", "6.6.6.6, 198.51.100.9", 1, "198.51.100.9"},
		{"two hops", "10.0.0.1:1234", "6.6.6.6, 198.51.100.9, 10.0.0.2", 2, "198.51.100.9"},
		{"more hops than entries", "10.0.0.1:1234", "198.51.100.9", 3, "198.51.100.9"},
		{"remote without port", "10.0.0.1", "", 1, "10.0.0.1"},
		{"blank entries", "10.0.0.1:1234", " , ", 1, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.hops))
		})
	}
}

func TestStatusFor(t *testing.T) {
	coded := func(kind platformerrors.Kind, code string) error {
		return platformerrors.Coded(kind, "test", code, "m", nil)
	}
	tests := []struct {
		err  error
		want int
	}{
		{coded(platformerrors.KindClientInput, upload.CodeFileMissing), 400},
		{coded(platformerrors.KindClientInput, upload.CodePayloadTooLarge), 413},
		{coded(platformerrors.KindClientInput, antibot.CodeTokenInvalid), 403},
		{coded(platformerrors.KindConfig, antibot.CodeMisconfigured), 503},
		{coded(platformerrors.KindQuota, ratelimit.CodeDaily), 429},
		{coded(platformerrors.KindUpstream, detector.CodeQuotaExceeded), 503},
		{coded(platformerrors.KindConfig, detector.CodeMisconfigured), 503},
		{coded(platformerrors.KindStorage, "WHATEVER"), 500},
		{errors.New("plain"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestErrorBodyHidesInternalErrors(t *testing.T) {
	status, body := ErrorBody(errors.New("db password is hunter2"))
	assert.Equal(t, 500, status)
	assert.Equal(t, internalErrorMessage, body["message"])
	assert.NotContains(t, body, "code")

	err := platformerrors.Coded(platformerrors.KindUpstream, "detector.detect", detector.CodeUnavailable,
		"safe message", errors.New("raw upstream body"))
	status, body = ErrorBody(err)
	assert.Equal(t, 503, status)
	assert.Equal(t, "safe message", body["message"])
	assert.Equal(t, detector.CodeUnavailable, body["code"])
	assert.Equal(t, "Service Unavailable", body["error"])
}

func TestErrorBodyFieldsCannotOverrideReservedKeys(t *testing.T) {
	err := platformerrors.Coded(platformerrors.KindQuota, "ratelimit.check", ratelimit.CodeShort, "m", nil).
		WithField("statusCode", 200).
		WithField("retryAfterMs", int64(10))
	_, body := ErrorBody(err)
	assert.Equal(t, 429, body["statusCode"])
	assert.Equal(t, int64(10), body["retryAfterMs"])
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := ratelimit.NewMemory(ratelimit.MemoryConfig{})
	limiter, err := ratelimit.NewLimiter(store, []ratelimit.Window{{Name: "short", Limit: 100, Duration: time.Minute}}, nil)
	require.NoError(t, err)
	defer limiter.Close(context.Background())

	router, err := Build(Options{Config: config.DefaultConfig(), Logger: logging.Discard(), Limiter: limiter})
	require.NoError(t, err)
	router.Root.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.Engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", rec.Body.String())

	rec = httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := ratelimit.NewMemory(ratelimit.MemoryConfig{})
	limiter, err := ratelimit.NewLimiter(store, nil, nil)
	require.NoError(t, err)
	defer limiter.Close(context.Background())

	router, err := Build(Options{Config: config.DefaultConfig(), Limiter: limiter})
	require.NoError(t, err)
	router.Root.POST("/detect/ai", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/detect/ai", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.Engine.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/detect/ai", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.Engine.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRequiresDependencies(t *testing.T) {
	_, err := Build(Options{})
	assert.Error(t, err)
	_, err = Build(Options{Config: config.DefaultConfig()})
	assert.Error(t, err)
}

func TestErrorBodyPayloadTooLargeText(t *testing.T) {
	status, body := ErrorBody(upload.TooLarge(8, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "Payload Too Large", body["error"])
	assert.Equal(t, upload.CodePayloadTooLarge, body["code"])

	assert.Equal(t, "Payload Too Large", StatusText(http.StatusRequestEntityTooLarge))
	assert.Equal(t, "Too Many Requests", StatusText(http.StatusTooManyRequests))
	assert.Equal(t, "Not Found", StatusText(http.StatusNotFound))
}

func newTestRouter(t *testing.T, limit int64) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := ratelimit.NewMemory(ratelimit.MemoryConfig{})
	limiter, err := ratelimit.NewLimiter(store, []ratelimit.Window{{Name: ratelimit.WindowShort, Limit: limit, Duration: time.Minute}}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close(context.Background()) })

	router, err := Build(Options{Config: config.DefaultConfig(), Logger: logging.Discard(), Limiter: limiter})
	require.NoError(t, err)
	require.NoError(t, NewSystemService("alejo-lab-api", logging.Discard()).Register(context.Background(), router.Root))
	return router
}

func TestOtherRoutesGetGenericRateLimit(t *testing.T) {
	router := newTestRouter(t, 1)
	router.Root.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), ratelimit.CodeExceeded)
	assert.Contains(t, rec.Body.String(), "Demasiadas solicitudes. Intenta de nuevo más tarde.")
}

func TestUnknownRoutesStay404(t *testing.T) {
	router := newTestRouter(t, 1)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"Not Found"`)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	shutdown, err := observability.Setup(context.Background(), observability.Config{}, nil)
	require.NoError(t, err)
	defer shutdown(context.Background())

	router := newTestRouter(t, 1)
	observability.RecordMetric(context.Background(), "detect_analyses_total", 1, map[string]string{"label": "alta"})
	observability.RecordMetric(context.Background(), "detect_analyses_total", 1, map[string]string{"label": "alta"})

	var body string
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code, "metrics must not be rate limited")
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		body = rec.Body.String()
	}
	assert.True(t, strings.Contains(body, "detect_analyses_total{label=alta} 2\n"), body)
	assert.Contains(t, body, "http.requests{")
}
