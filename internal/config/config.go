package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full application configuration
type Config struct {
	Server  ServerConfig
	Siigo   SiigoConfig
	Sheets  SheetsConfig
	SMTP    SMTPConfig
	Retry   RetryConfig
	Batch   BatchConfig
	Kafka   KafkaConfig
	Logging LoggingConfig
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// SiigoConfig configures access to the Siigo billing API
type SiigoConfig struct {
	BaseURL   string
	PartnerID string
	Username  string
	AccessKey string
}

// SheetsConfig configures the Google Sheets backend
type SheetsConfig struct {
	CredentialsPath string
	SheetID         string
	ReadRange       string
}

// SMTPConfig configures the outbound mail relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// RetryConfig configures outbound call retries
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// BatchConfig configures the scheduled sheet reconciliation
type BatchConfig struct {
	IntervalMinutes int
}

// KafkaConfig configures the optional registration event stream
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level string
}

// requiredVars must be present in the environment for the service to start.
// Mirrors what the registration flow cannot run without: Siigo credentials,
// the spreadsheet and the mail relay.
var requiredVars = []string{
	"SIIGO_PARTNER_ID",
	"SIIGO_API_USERNAME",
	"SIIGO_API_PASSWORD",
	"GOOGLE_CREDS_PATH",
	"SHEET_ID",
	"SMTP_SERVER",
	"SMTP_PORT",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var missing []string
	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30),
		},
		Siigo: SiigoConfig{
			BaseURL:   getEnv("SIIGO_API_URL", "https://api.siigo.com"),
			PartnerID: getEnv("SIIGO_PARTNER_ID", ""),
			Username:  getEnv("SIIGO_API_USERNAME", ""),
			AccessKey: getEnv("SIIGO_API_PASSWORD", ""),
		},
		Sheets: SheetsConfig{
			CredentialsPath: getEnv("GOOGLE_CREDS_PATH", ""),
			SheetID:         getEnv("SHEET_ID", ""),
			ReadRange:       getEnv("SHEET_READ_RANGE", "A1:AE100"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_SERVER", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("MAX_RETRIES", 3),
			Delay:       time.Duration(getEnvAsInt("RETRY_DELAY_MS", 1000)) * time.Millisecond,
		},
		Batch: BatchConfig{
			IntervalMinutes: getEnvAsInt("SHEET_SYNC_INTERVAL_MINUTES", 30),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "user.registered"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns an environment variable as int or a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsSlice returns a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
