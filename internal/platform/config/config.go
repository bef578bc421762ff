package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Upload    UploadConfig    `yaml:"upload"`
	Detector  DetectorConfig  `yaml:"detector"`
	AntiBot   AntiBotConfig   `yaml:"antibot"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	ServiceName    string   `yaml:"service_name" env:"SERVICE_NAME"`
	CORSOrigins    []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	TrustProxyHops int      `yaml:"trust_proxy_hops" env:"TRUST_PROXY_HOPS"`
	Mode           string   `yaml:"mode" env:"GIN_MODE"`
}

type LogConfig struct {
	Level string `yaml:"log_level" env:"LOG_LEVEL"`
	Dir   string `yaml:"log_dir" env:"LOG_DIR"`
	File  string `yaml:"log_file" env:"LOG_FILE"`
}

type UploadConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB"`
}

// MaxBytes is the upload cap in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxUploadMB) * 1024 * 1024
}

type DetectorConfig struct {
	URL       string `yaml:"url" env:"SIGHTENGINE_URL"`
	APIUser   string `yaml:"api_user" env:"SIGHTENGINE_USER"`
	APISecret string `yaml:"api_secret" env:"SIGHTENGINE_SECRET"`
	Models    string `yaml:"models" env:"SIGHTENGINE_MODELS"`
	TimeoutMS int    `yaml:"timeout_ms" env:"SIGHTENGINE_TIMEOUT_MS"`
}

func (d DetectorConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

type AntiBotConfig struct {
	SecretKey  string `yaml:"secret_key" env:"TURNSTILE_SECRET_KEY"`
	VerifyURL  string `yaml:"verify_url" env:"TURNSTILE_VERIFY_URL"`
	TimeoutMS  int    `yaml:"timeout_ms" env:"TURNSTILE_TIMEOUT_MS"`
	TokenField string `yaml:"token_field" env:"BOT_TOKEN_FIELD"`
}

func (a AntiBotConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

type RateLimitConfig struct {
	Store        string      `yaml:"store" env:"RATE_LIMIT_STORE"`
	ShortLimit   int         `yaml:"short_limit" env:"RATE_LIMIT_SHORT_LIMIT"`
	ShortTTLMS   int64       `yaml:"short_ttl_ms" env:"RATE_LIMIT_SHORT_TTL_MS"`
	DailyLimit   int         `yaml:"daily_limit" env:"RATE_LIMIT_DAILY_LIMIT"`
	DailyTTLMS   int64       `yaml:"daily_ttl_ms" env:"RATE_LIMIT_DAILY_TTL_MS"`
	GCIntervalMS int64       `yaml:"gc_interval_ms" env:"RATE_LIMIT_GC_INTERVAL_MS"`
	Redis        RedisConfig `yaml:"redis"`
}

func (r RateLimitConfig) ShortTTL() time.Duration {
	return time.Duration(r.ShortTTLMS) * time.Millisecond
}

func (r RateLimitConfig) DailyTTL() time.Duration {
	return time.Duration(r.DailyTTLMS) * time.Millisecond
}

func (r RateLimitConfig) GCInterval() time.Duration {
	return time.Duration(r.GCIntervalMS) * time.Millisecond
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Username string `yaml:"username,omitempty" env:"REDIS_USERNAME"`
	Password string `yaml:"password,omitempty" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db,omitempty" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix,omitempty" env:"REDIS_PREFIX"`
}
