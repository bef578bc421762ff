package antibot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"alejo-lab-api/internal/platform/logging"
	"alejo-lab-api/internal/platform/observability"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type TurnstileConfig struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

type turnstileResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	Action      string   `json:"action"`
}

// Turnstile verifies tokens against Cloudflare Turnstile with one bounded POST.
type Turnstile struct {
	cfg    TurnstileConfig
	client *resty.Client
	logger *logging.Logger
}

func NewTurnstile(cfg TurnstileConfig, logger *logging.Logger) *Turnstile {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 7 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	return &Turnstile{cfg: cfg, client: client, logger: logger}
}

func (t *Turnstile) Verify(ctx context.Context, token, ip string) (res Result, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, tokenMissing()
	}
	if t.cfg.Secret == "" {
		t.logger.ErrorTag("ANTIBOT", "TURNSTILE_SECRET_KEY is not set")
		return Result{}, misconfigured()
	}

	ctx, end := observability.StartSpan(ctx, "antibot", "verify")
	defer func() { end(err) }()

	form := map[string]string{
		"secret":   t.cfg.Secret,
		"response": token,
	}
	if ip != "" {
		form["remoteip"] = ip
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(t.cfg.VerifyURL)
	if err != nil {
		t.logger.WarnTag("ANTIBOT", "provider request failed: %v", err)
		return Result{}, unavailable(err)
	}
	if resp.IsError() {
		t.logger.WarnTag("ANTIBOT", "provider returned status %d", resp.StatusCode())
		return Result{}, unavailable(fmt.Errorf("siteverify status %d", resp.StatusCode()))
	}

	var body turnstileResponse
	if err := sonic.Unmarshal(resp.Body(), &body); err != nil {
		t.logger.WarnTag("ANTIBOT", "provider body is not json: %v", err)
		return Result{}, unavailable(err)
	}

	res = Result{Success: body.Success, ErrorCodes: body.ErrorCodes}
	if !body.Success {
		t.logger.InfoTag("ANTIBOT", "token rejected", "codes", body.ErrorCodes, "ip", ip)
		return res, tokenInvalid(body.ErrorCodes)
	}
	return res, nil
}
