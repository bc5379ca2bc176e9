package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SIIGO_PARTNER_ID", "timbale")
	t.Setenv("SIIGO_API_USERNAME", "api@timbale.co")
	t.Setenv("SIIGO_API_PASSWORD", "secret")
	t.Setenv("GOOGLE_CREDS_PATH", "/etc/creds.json")
	t.Setenv("SHEET_ID", "sheet-1")
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_USERNAME", "noreply@timbale.co")
	t.Setenv("SMTP_PASSWORD", "mailpass")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://api.siigo.com", cfg.Siigo.BaseURL)
	assert.Equal(t, "timbale", cfg.Siigo.PartnerID)
	assert.Equal(t, "A1:AE100", cfg.Sheets.ReadRange)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, 30, cfg.Batch.IntervalMinutes)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, "user.registered", cfg.Kafka.Topic)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_DELAY_MS", "250")
	t.Setenv("SHEET_SYNC_INTERVAL_MINUTES", "10")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, 10, cfg.Batch.IntervalMinutes)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadReportsAllMissingVariables(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SIIGO_PARTNER_ID", "")
	t.Setenv("SMTP_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIIGO_PARTNER_ID")
	assert.Contains(t, err.Error(), "SMTP_PASSWORD")
}

func TestLoadIgnoresMalformedInts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_RETRIES", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}
