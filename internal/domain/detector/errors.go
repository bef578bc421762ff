package detector

import (
	"context"
	"errors"
	"net"
	"net/url"

	platformerrors "alejo-lab-api/internal/platform/errors"
)

const (
	CodeMisconfigured      = "DETECTOR_MISCONFIGURED"
	CodeUnexpectedResponse = "UNEXPECTED_RESPONSE"
	CodeTimeout            = "DETECTOR_TIMEOUT"
	CodeQuotaExceeded      = "DETECTOR_QUOTA_EXCEEDED"
	CodeAuthFailed         = "DETECTOR_AUTH_FAILED"
	CodeBadRequest         = "DETECTOR_BAD_REQUEST"
	CodeUnavailable        = "DETECTOR_UNAVAILABLE"
	CodeUnreachable        = "DETECTOR_UNREACHABLE"
	CodeFailed             = "DETECTOR_FAILED"
)

var messages = map[string]string{
	CodeMisconfigured:      "Faltan credenciales de Sightengine.",
	CodeUnexpectedResponse: "Respuesta inesperada de Sightengine.",
	CodeTimeout:            "El servicio de análisis tardó demasiado en responder. Intenta de nuevo.",
	CodeQuotaExceeded:      "El servicio de análisis alcanzó su límite de uso. Intenta más tarde.",
	CodeAuthFailed:         "El servicio de análisis no está disponible por un problema de configuración.",
	CodeBadRequest:         "El servicio de análisis no pudo procesar la imagen.",
	CodeUnavailable:        "El servicio de análisis no está disponible. Intenta de nuevo más tarde.",
	CodeUnreachable:        "No se pudo contactar al servicio de análisis.",
	CodeFailed:             "No se pudo analizar la imagen.",
}

// statusCodes maps exact upstream statuses; statusClasses maps the rest by hundred.
var (
	statusCodes = map[int]string{
		402: CodeQuotaExceeded,
		429: CodeQuotaExceeded,
		401: CodeAuthFailed,
		403: CodeAuthFailed,
	}
	statusClasses = map[int]string{
		4: CodeBadRequest,
		5: CodeUnavailable,
	}
)

// CodeForStatus classifies a non-success upstream HTTP status.
func CodeForStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if code, ok := statusClasses[status/100]; ok {
		return code
	}
	return CodeFailed
}

// CodeForTransport classifies an error raised before any response arrived.
func CodeForTransport(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CodeFailed
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return CodeUnreachable
	}
	return CodeFailed
}

func failure(code string, cause error) *platformerrors.Error {
	kind := platformerrors.KindUpstream
	if code == CodeMisconfigured {
		kind = platformerrors.KindConfig
	}
	msg, ok := messages[code]
	if !ok {
		code, msg = CodeFailed, messages[CodeFailed]
	}
	return platformerrors.Coded(kind, "detector.detect", code, msg, cause)
}
