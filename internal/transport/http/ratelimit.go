package httptransport

import (
	"github.com/gin-gonic/gin"

	"alejo-lab-api/internal/domain/eventbus"
	"alejo-lab-api/internal/domain/ratelimit"
	platformerrors "alejo-lab-api/internal/platform/errors"
	"alejo-lab-api/internal/platform/logging"
)

// ExemptPaths are never rate limited.
var ExemptPaths = map[string]struct{}{
	"/health":       {},
	"/metrics":      {},
	"/docs":         {},
	"/openapi.json": {},
}

// rateLimitMiddleware charges each request on a registered route to route+client
// before any handler runs.
// A store failure lets the request through and is logged at error level.
func rateLimitMiddleware(
	limiter *ratelimit.Limiter,
	hops int,
	events eventbus.Publisher,
	logger *logging.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := ExemptPaths[path]; ok {
			c.Next()
			return
		}

		// unknown paths fall through to the 404 handler without spending quota
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		ip := ClientIP(c.Request, hops)

		decision, err := limiter.Check(c.Request.Context(), route+"|"+ip)
		if err != nil {
			logger.ErrorTag("RATELIMIT", "store unavailable, admitting request: %v", err)
			c.Next()
			return
		}
		if decision.Allowed {
			c.Next()
			return
		}

		rejection := ratelimit.Rejection(path, decision)
		if events != nil {
			code := ""
			if typed, ok := platformerrors.As(rejection); ok {
				code = typed.Code
			}
			events.PublishAsync(eventbus.EventRateLimited, eventbus.RateLimitEvent{
				Route:    route,
				Window:   decision.Window,
				Code:     code,
				ClientIP: ip,
			})
		}
		RespondError(c, logger, rejection)
	}
}
