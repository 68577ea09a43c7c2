package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	SessionSecret string // Required: HMAC secret for session tokens
	SessionIssuer string // Optional: issuer claim for session tokens (default: traintab)
	SessionTTL    time.Duration

	DomainClient string // Optional: client origin for invitation links (default: http://localhost:3000)
	AppTitle     string // Optional: branding for invitation mail (default: Training Platform)
	MailDomain   string // Optional: domain for generated trainee account emails (default: trainees.local)

	PepperFile           string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	DatabaseFile         string // Optional: path to SQLite database file (default: ./training.db)
	Env                  string // Environment (dev, staging, prod) (default: dev)
	LogLevel             string // Log level (debug, info, warn, error) (default: info)
	LogFormat            string // Log format (json, text) (default: json)
	Port                 int    // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionIssuer: getEnvOrDefault("SESSION_ISSUER", "traintab"),
		SessionTTL:    getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),

		DomainClient: getEnvOrDefault("DOMAIN_CLIENT", "http://localhost:3000"),
		AppTitle:     getEnvOrDefault("APP_TITLE", "Training Platform"),
		MailDomain:   getEnvOrDefault("TRAINEE_MAIL_DOMAIN", "trainees.local"),

		PepperFile:           getEnvOrDefault("PEPPER_FILE", "pepper"), // Default to ./pepper
		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "training.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
