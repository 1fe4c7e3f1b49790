package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AnchorProvider            string
	AnchorURL                 string
	AnchorSignSeedHex         string
	AnchorTimeoutSeconds      int
	AnchorRetryMax            int
	AnchorBreakerFailures     int
	AnchorBreakerCooldownSecs int

	BlobBackend string
	BlobDir     string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests      int
	RateLimitWindowSeconds int

	PolicyBundlePath string

	SealGuardTTLSeconds  int
	SweepIntervalSeconds int
	SweepBatchSize       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                  addr,
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
		AnchorProvider:            envDefault("ANCHOR_PROVIDER", "ledger"),
		AnchorURL:                 os.Getenv("ANCHOR_URL"),
		AnchorSignSeedHex:         os.Getenv("ANCHOR_SIGN_SEED_HEX"),
		AnchorTimeoutSeconds:      envIntDefault("ANCHOR_TIMEOUT_SECONDS", 5),
		AnchorRetryMax:            envIntDefault("ANCHOR_RETRY_MAX", 5),
		AnchorBreakerFailures:     envIntDefault("ANCHOR_BREAKER_FAILURES", 5),
		AnchorBreakerCooldownSecs: envIntDefault("ANCHOR_BREAKER_COOLDOWN_SECONDS", 30),
		BlobBackend:               envDefault("BLOB_BACKEND", "fs"),
		BlobDir:                   envDefault("BLOB_DIR", "/var/lib/seald/blobs"),
		S3Bucket:                  os.Getenv("S3_BUCKET"),
		S3Region:                  os.Getenv("S3_REGION"),
		S3Endpoint:                os.Getenv("S3_ENDPOINT"),
		S3Prefix:                  envDefault("S3_PREFIX", "payloads"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
		RateLimitRequests:         envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:    envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		PolicyBundlePath:          os.Getenv("POLICY_BUNDLE_PATH"),
		SealGuardTTLSeconds:       envIntDefault("SEAL_GUARD_TTL_SECONDS", 30),
		SweepIntervalSeconds:      envIntDefault("SWEEP_INTERVAL_SECONDS", 60),
		SweepBatchSize:            envIntDefault("SWEEP_BATCH_SIZE", 50),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) AnchorTimeout() time.Duration {
	return time.Duration(c.AnchorTimeoutSeconds) * time.Second
}

func (c Config) AnchorBreakerCooldown() time.Duration {
	return time.Duration(c.AnchorBreakerCooldownSecs) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) SealGuardTTL() time.Duration {
	return time.Duration(c.SealGuardTTLSeconds) * time.Second
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
