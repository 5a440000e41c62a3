package config

import (
	"os"
	"strconv"
	"time"
)

type S3 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Providers struct {
	FacebookEndpoint  string
	InstagramEndpoint string
	TiktokEndpoint    string
}

// Publish holds the dispatch policy knobs. All of them are overridable
// through the environment; defaults are applied by LoadConfig.
type Publish struct {
	MaxAttempts      int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	Workers          int
	AttemptTimeout   time.Duration
	MediaWaitTimeout time.Duration
	MediaPollEvery   time.Duration
}

type Config struct {
	PostgresURI   string
	RedisURI      string
	FrontendURL   string
	SecretKey     string
	CookieName    string
	SweepInterval string
	S3            S3
	Providers     Providers
	Publish       Publish
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:   getEnv("POSTGRES_URI", ""),
		RedisURI:      getEnv("REDIS_URI", ""),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:     getEnv("SECRET_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", ""),
		SweepInterval: getEnv("SWEEP_INTERVAL", "@every 00h00m30s"),
		S3: S3{
			AccountID:  getEnv("S3_ACCOUNT_ID", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			BucketName: getEnv("S3_BUCKET_NAME", ""),
		},
		Providers: Providers{
			FacebookEndpoint:  getEnv("FACEBOOK_PUBLISH_ENDPOINT", ""),
			InstagramEndpoint: getEnv("INSTAGRAM_PUBLISH_ENDPOINT", ""),
			TiktokEndpoint:    getEnv("TIKTOK_PUBLISH_ENDPOINT", ""),
		},
		Publish: Publish{
			MaxAttempts:      getEnvInt("PUBLISH_MAX_ATTEMPTS", 3),
			RetryBaseDelay:   getEnvDuration("PUBLISH_RETRY_BASE_DELAY", 2*time.Second),
			RetryMaxDelay:    getEnvDuration("PUBLISH_RETRY_MAX_DELAY", 60*time.Second),
			Workers:          getEnvInt("PUBLISH_WORKERS", 0),
			AttemptTimeout:   getEnvDuration("PUBLISH_ATTEMPT_TIMEOUT", 30*time.Second),
			MediaWaitTimeout: getEnvDuration("MEDIA_WAIT_TIMEOUT", 2*time.Minute),
			MediaPollEvery:   getEnvDuration("MEDIA_POLL_INTERVAL", 5*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
