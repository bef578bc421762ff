package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported rate-limit store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Loader resolves configuration from defaults, an optional YAML file, .env and the environment.
type Loader struct {
	useDotEnv   bool
	filePath    string
	environment map[string]string
}

// NewLoader creates a loader that reads .env and the process environment.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		filePath:  os.Getenv("CONFIG_FILE"),
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithFile sets the YAML file read before environment overrides.
func (l *Loader) WithFile(path string) *Loader {
	l.filePath = path
	return l
}

// WithEnvironment replaces the process environment (useful for tests).
func (l *Loader) WithEnvironment(vars map[string]string) *Loader {
	l.environment = vars
	return l
}

// Result captures the loaded configuration and where it came from.
type Result struct {
	Config *Config
	Source string
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv && l.environment == nil {
		// a missing .env is normal outside local development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	source := "defaults+env"

	if l.filePath != "" {
		raw, err := os.ReadFile(l.filePath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", l.filePath, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.filePath, err)
		}
		source = l.filePath + "+env"
	}

	opts := env.Options{}
	if l.environment != nil {
		opts.Environment = l.environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Server.CORSOrigins = normalizeOrigins(cfg.Server.CORSOrigins)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Source: source}, nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), FallbackCORSOrigins...)
	}
	return out
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Server.TrustProxyHops < 0 {
		return fmt.Errorf("invalid trust proxy hops: %d", cfg.Server.TrustProxyHops)
	}
	if cfg.Upload.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %dMB", cfg.Upload.MaxUploadMB)
	}
	if cfg.Detector.TimeoutMS <= 0 || cfg.AntiBot.TimeoutMS <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}
	switch cfg.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode: %s", cfg.Server.Mode)
	}
	if strings.TrimSpace(cfg.AntiBot.TokenField) == "" {
		return fmt.Errorf("bot token field name is required")
	}
	rl := cfg.RateLimit
	if rl.ShortLimit <= 0 || rl.DailyLimit <= 0 || rl.ShortTTLMS <= 0 || rl.DailyTTLMS <= 0 {
		return fmt.Errorf("rate limit windows must have positive limit and ttl")
	}
	switch rl.Store {
	case StoreMemory:
	case StoreRedis:
		if rl.Redis.Addr == "" {
			return fmt.Errorf("redis rate limit store requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported rate limit store: %s", rl.Store)
	}
	return nil
}
