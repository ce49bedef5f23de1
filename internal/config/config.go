package config

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Config holds server configuration loaded from the environment
type Config struct {
	Port        string
	Environment string
	BaseURL     string

	LogLevel string
	LogFile  string

	JWTSecret []byte

	RedisHost     string
	RedisPort     string
	RedisPassword string

	AWSRegion string
	S3Bucket  string
	CDNBase   string

	EmailFrom     string
	EmailFromName string

	OTLPEndpoint   string
	TracingEnabled bool
}

// Load reads server configuration from environment variables.
// JWT_SECRET is required; everything else has a development default.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8585"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8585"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "server.log"),

		JWTSecret: []byte(secret),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AWSRegion: getEnvOrDefault("AWS_REGION", "us-east-1"),
		S3Bucket:  os.Getenv("AWS_BUCKET"),
		CDNBase:   os.Getenv("CDN_BASE_URL"),

		EmailFrom:     os.Getenv("EMAIL_FROM"),
		EmailFromName: getEnvOrDefault("EMAIL_FROM_NAME", "Relist"),

		OTLPEndpoint:   getEnvOrDefault("OTLP_ENDPOINT", "localhost:4318"),
		TracingEnabled: os.Getenv("TRACING_ENABLED") == "true",
	}

	return cfg, nil
}

// LoadGoogleOAuth loads the Google OAuth configuration from environment
// variables. Returns nil when the client ID is not configured, in which case
// social login is disabled.
func LoadGoogleOAuth(baseURL string) *oauth2.Config {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if clientID == "" {
		return nil
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  baseURL + "/auth/google/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
