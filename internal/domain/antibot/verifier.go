package antibot

import (
	"context"

	platformerrors "alejo-lab-api/internal/platform/errors"
)

const (
	CodeTokenMissing  = "TOKEN_MISSING"
	CodeTokenInvalid  = "TOKEN_INVALID"
	CodeUnavailable   = "BOT_PROVIDER_UNAVAILABLE"
	CodeMisconfigured = "BOT_PROTECTION_MISCONFIGURED"
)

// Result is the provider outcome for one token.
type Result struct {
	Success    bool
	ErrorCodes []string
}

// Verifier checks a challenge token for the given client ip.
type Verifier interface {
	Verify(ctx context.Context, token, ip string) (Result, error)
}

func tokenMissing() error {
	return platformerrors.Coded(platformerrors.KindClientInput, "antibot.verify",
		CodeTokenMissing, "Falta el token anti-bot.", nil)
}

func misconfigured() error {
	return platformerrors.Coded(platformerrors.KindConfig, "antibot.verify",
		CodeMisconfigured, "La protección anti-bot no está configurada.", nil)
}

func tokenInvalid(codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	return platformerrors.Coded(platformerrors.KindClientInput, "antibot.verify",
		CodeTokenInvalid, "Token anti-bot inválido o expirado.", nil).
		WithField("details", codes)
}

func unavailable(cause error) error {
	return platformerrors.Coded(platformerrors.KindUpstream, "antibot.verify",
		CodeUnavailable, "No se pudo validar el challenge anti-bot.", cause)
}
