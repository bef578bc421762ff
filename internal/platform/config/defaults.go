package config

// FallbackCORSOrigins is used when CORS_ORIGINS is empty.
var FallbackCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           3001,
			ServiceName:    "alejo-lab-api",
			TrustProxyHops: 1,
			Mode:           "release",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Upload: UploadConfig{
			MaxUploadMB: 8,
		},
		Detector: DetectorConfig{
			URL:       "https://api.sightengine.com/1.0/check.json",
			Models:    "genai",
			TimeoutMS: 10000,
		},
		AntiBot: AntiBotConfig{
			VerifyURL:  "https://challenges.cloudflare.com/turnstile/v0/siteverify",
			TimeoutMS:  7000,
			TokenField: "turnstileToken",
		},
		RateLimit: RateLimitConfig{
			Store:        "memory",
			ShortLimit:   3,
			ShortTTLMS:   60_000,
			DailyLimit:   10,
			DailyTTLMS:   86_400_000,
			GCIntervalMS: 60_000,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "ratelimit:",
			},
		},
	}
}
