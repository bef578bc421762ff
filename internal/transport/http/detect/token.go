package detect

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	TokenHeader         = "x-turnstile-token"
	FallbackTokenHeader = "cf-turnstile-response"
)

type tokenExtractor func(c *gin.Context) string

// tokenExtractors lists token sources by precedence: body field, then headers.
func tokenExtractors(field string) []tokenExtractor {
	return []tokenExtractor{
		func(c *gin.Context) string { return c.PostForm(field) },
		func(c *gin.Context) string { return c.GetHeader(TokenHeader) },
		func(c *gin.Context) string { return c.GetHeader(FallbackTokenHeader) },
	}
}

// extractToken returns the first non-blank token.
func extractToken(c *gin.Context, extractors []tokenExtractor) string {
	for _, extract := range extractors {
		if token := strings.TrimSpace(extract(c)); token != "" {
			return token
		}
	}
	return ""
}
