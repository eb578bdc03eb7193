package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshExpiry     time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins

	Confirm ConfirmConfig
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string
	EmailConfirmations string
	PhoneConfirmations string
}

// ConfirmConfig is the confirmation-code policy surface consumed by the
// confirmation service: code size, per-variant TTLs, the phone resend
// limiter, and the optional fixed test codes.
type ConfirmConfig struct {
	CodeLength        int
	EmailTTL          time.Duration
	PhoneTTL          time.Duration
	PhoneMaxSendCount int
	PhoneStepWait     time.Duration
	PhoneResetWindow  time.Duration
	// Non-empty values replace the generated code for the variant.
	// Intended for test/staging environments without real delivery.
	EmailTestCode string
	PhoneTestCode string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:              getEnv("DYNAMO_TABLE_USERS", "users"),
			EmailConfirmations: getEnv("DYNAMO_TABLE_EMAIL_CONFIRMATIONS", "email_confirmations"),
			PhoneConfirmations: getEnv("DYNAMO_TABLE_PHONE_CONFIRMATIONS", "phone_confirmations"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshExpiry:     time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		Confirm: ConfirmConfig{
			CodeLength:        getEnvInt("CONFIRM_CODE_LENGTH", 6),
			EmailTTL:          time.Duration(getEnvInt("EMAIL_CONFIRM_TTL_HOURS", 24)) * time.Hour,
			PhoneTTL:          time.Duration(getEnvInt("PHONE_CONFIRM_TTL_HOURS", 1)) * time.Hour,
			PhoneMaxSendCount: getEnvInt("PHONE_CONFIRM_MAX_SEND_COUNT", 5),
			PhoneStepWait:     time.Duration(getEnvInt("PHONE_CONFIRM_STEP_WAIT_SECONDS", 60)) * time.Second,
			PhoneResetWindow:  time.Duration(getEnvInt("PHONE_CONFIRM_RESET_SEND_SECONDS", 3600)) * time.Second,
			EmailTestCode:     getEnv("EMAIL_TEST_CONFIRM_CODE", ""),
			PhoneTestCode:     getEnv("PHONE_TEST_CONFIRM_CODE", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
