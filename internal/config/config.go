package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	// Scheduler cadence and reminder policy.
	DispatchTick        time.Duration
	FollowUpTick        time.Duration
	FollowUpWindowDays  int
	ReminderOffsetHours []int
	SendTimeout         time.Duration

	// Twilio (SMS + WhatsApp).
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFromNumber    string
	TwilioWhatsAppFrom  string
	TwilioWebhookSecret string
	WebhookURL          string

	// Email provider selection: "sendgrid" or "ses".
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string

	// Gemini wellness tips for follow-up messages (optional).
	GeminiAPIKey  string
	GeminiModelID string

	// Redis, used to deduplicate inbound webhook deliveries.
	RedisAddr        string
	RedisPassword    string
	InboundDedupeTTL time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		DispatchTick:        getEnvAsDuration("DISPATCH_TICK", time.Minute),
		FollowUpTick:        getEnvAsDuration("FOLLOWUP_TICK", 15*time.Minute),
		FollowUpWindowDays:  getEnvAsInt("FOLLOWUP_WINDOW_DAYS", 7),
		ReminderOffsetHours: getEnvAsIntList("REMINDER_OFFSET_HOURS", []int{24, 1}),
		SendTimeout:         getEnvAsDuration("SEND_TIMEOUT", 15*time.Second),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioWhatsAppFrom:  getEnv("TWILIO_WHATSAPP_FROM", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
		WebhookURL:          getEnv("WEBHOOK_URL", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "AfyaLink"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "AfyaLink"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		InboundDedupeTTL: getEnvAsDuration("INBOUND_DEDUPE_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

// getEnvAsIntList parses a comma-separated list of integers, e.g. "24,1".
func getEnvAsIntList(key string, defaultValue []int) []int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
