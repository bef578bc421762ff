package httptransport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"alejo-lab-api/internal/domain/eventbus"
	"alejo-lab-api/internal/domain/ratelimit"
	"alejo-lab-api/internal/platform/config"
	"alejo-lab-api/internal/platform/logging"
)

// Options configures the HTTP router builder.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Limiter *ratelimit.Limiter
	Events  eventbus.Publisher
}

// Router bundles the gin engine and the root route group.
type Router struct {
	Engine *gin.Engine
	Root   *gin.RouterGroup
}

// Build constructs a gin engine with recovery, request ids, access logging,
// observability, CORS and rate limiting already installed.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	if opts.Limiter == nil {
		return nil, fmt.Errorf("http router requires a rate limiter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	server := opts.Config.Server

	if server.Mode != "" {
		gin.SetMode(server.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(loggingMiddleware(logger, server.TrustProxyHops))
	engine.Use(observabilityMiddleware())

	// client ip resolution is done by ClientIP with TRUST_PROXY_HOPS
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}

	origins := server.CORSOrigins
	if len(origins) == 0 {
		origins = config.FallbackCORSOrigins
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"X-Request-ID",
			"X-Turnstile-Token",
			"CF-Turnstile-Response",
		},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.Use(rateLimitMiddleware(opts.Limiter, server.TrustProxyHops, opts.Events, logger))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"statusCode": http.StatusNotFound,
			"error":      StatusText(http.StatusNotFound),
			"message":    fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})

	return &Router{
		Engine: engine,
		Root:   engine.Group(""),
	}, nil
}
