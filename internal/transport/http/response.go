package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alejo-lab-api/internal/domain/antibot"
	"alejo-lab-api/internal/domain/ratelimit"
	"alejo-lab-api/internal/domain/upload"
	platformerrors "alejo-lab-api/internal/platform/errors"
	"alejo-lab-api/internal/platform/logging"
)

const internalErrorMessage = "Error interno del servidor."

// codeStatus pins codes whose status differs from their kind default.
var codeStatus = map[string]int{
	upload.CodeFileMissing:          http.StatusBadRequest,
	upload.CodeUnsupportedFormat:    http.StatusBadRequest,
	upload.CodeFileProcessingFailed: http.StatusBadRequest,
	upload.CodePayloadTooLarge:      http.StatusRequestEntityTooLarge,
	antibot.CodeTokenMissing:        http.StatusBadRequest,
	antibot.CodeTokenInvalid:        http.StatusForbidden,
	antibot.CodeUnavailable:         http.StatusServiceUnavailable,
	antibot.CodeMisconfigured:       http.StatusServiceUnavailable,
	ratelimit.CodeShort:             http.StatusTooManyRequests,
	ratelimit.CodeDaily:             http.StatusTooManyRequests,
	ratelimit.CodeExceeded:          http.StatusTooManyRequests,
}

var kindStatus = map[platformerrors.Kind]int{
	platformerrors.KindClientInput: http.StatusBadRequest,
	platformerrors.KindQuota:       http.StatusTooManyRequests,
	platformerrors.KindUpstream:    http.StatusServiceUnavailable,
	platformerrors.KindConfig:      http.StatusServiceUnavailable,
}

// statusText overrides net/http reason phrases that callers see under newer names.
var statusText = map[int]string{
	http.StatusRequestEntityTooLarge: "Payload Too Large",
}

// StatusText is the "error" field for status.
func StatusText(status int) string {
	if text, ok := statusText[status]; ok {
		return text
	}
	return http.StatusText(status)
}

// StatusFor resolves the HTTP status of a pipeline error.
func StatusFor(err error) int {
	typed, ok := platformerrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := codeStatus[typed.Code]; ok {
		return status
	}
	if status, ok := kindStatus[typed.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorBody renders {statusCode, error, message, code?, ...fields}.
func ErrorBody(err error) (int, gin.H) {
	status := StatusFor(err)
	body := gin.H{
		"statusCode": status,
		"error":      StatusText(status),
		"message":    internalErrorMessage,
	}

	typed, ok := platformerrors.As(err)
	if !ok || status == http.StatusInternalServerError {
		return status, body
	}
	body["message"] = typed.Message
	if typed.Code != "" {
		body["code"] = typed.Code
	}
	for k, v := range typed.Fields {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}
	return status, body
}

// RespondError writes the error payload and aborts the chain. Causes are logged, never sent.
func RespondError(c *gin.Context, logger *logging.Logger, err error) {
	status, body := ErrorBody(err)
	if status >= http.StatusInternalServerError {
		logger.WarnTag("HTTP", "request failed",
			"request_id", RequestID(c),
			"status", status,
			"error", err.Error(),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
