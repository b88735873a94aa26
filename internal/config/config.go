package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Stripe billing
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeTimeout       time.Duration

	// Retell voice agent webhooks
	RetellWebhookSecret string

	// Cal.com scheduling webhooks
	CalComWebhookSecret string

	// SendGrid notification email
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Reminder worker
	ReminderPollInterval time.Duration

	// Default billing terms applied to new clients
	DefaultPerMinuteRateCents int
	DefaultMilestoneInterval  int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeTimeout:       getEnvAsDuration("STRIPE_TIMEOUT", 10*time.Second),

		RetellWebhookSecret: getEnv("RETELL_WEBHOOK_SECRET", ""),
		CalComWebhookSecret: getEnv("CALCOM_WEBHOOK_SECRET", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "ShowRate"),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Minute),

		DefaultPerMinuteRateCents: getEnvAsInt("DEFAULT_PER_MINUTE_RATE_CENTS", 20),
		DefaultMilestoneInterval:  getEnvAsInt("DEFAULT_MILESTONE_INTERVAL", 25),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
