package ratelimit

import (
	"fmt"
	"math"
	"time"

	platformerrors "alejo-lab-api/internal/platform/errors"
)

const (
	CodeShort    = "RATE_LIMIT_SHORT"
	CodeDaily    = "RATE_LIMIT_DAILY"
	CodeExceeded = "RATE_LIMIT_EXCEEDED"
)

// DetectRoute gets window-specific wording; every other route gets the generic one.
const DetectRoute = "/detect/ai"

const genericMessage = "Demasiadas solicitudes. Intenta de nuevo más tarde."

// FormatRetry renders a wait as "Ns", "N min" or "N h", rounded up, never below 1.
func FormatRetry(d time.Duration) string {
	s := int64(math.Ceil(float64(d.Milliseconds()) / 1000))
	if s < 1 {
		s = 1
	}
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	m := (s + 59) / 60
	if m < 60 {
		return fmt.Sprintf("%d min", m)
	}
	h := (m + 59) / 60
	return fmt.Sprintf("%d h", h)
}

// Rejection builds the 429 error for a denied decision on route.
func Rejection(route string, d Decision) error {
	code, message := CodeExceeded, genericMessage
	retryIn := FormatRetry(d.RetryAfter)

	if route == DetectRoute {
		switch d.Window {
		case WindowShort:
			code = CodeShort
			message = fmt.Sprintf(
				"Demasiadas solicitudes en poco tiempo. Máximo %d análisis por minuto. Intenta de nuevo en %s.",
				d.Limit, retryIn)
		case WindowDaily:
			code = CodeDaily
			message = fmt.Sprintf(
				"Límite diario alcanzado. Máximo %d análisis por día. Intenta de nuevo en %s.",
				d.Limit, retryIn)
		}
	}

	return platformerrors.Coded(platformerrors.KindQuota, "ratelimit.check", code, message, nil).
		WithField("throttler", d.Window).
		WithField("retryAfterMs", d.RetryAfterMs())
}
