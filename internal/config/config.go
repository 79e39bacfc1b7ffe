package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// ErrMissingConfig is returned when a collaborator is used without its
// credentials or endpoint configured.
var ErrMissingConfig = errors.New("missing required configuration")

type Config struct {
	// Invoice backend
	BackendURL   string
	CentreTokens map[models.Centre]string

	// Payment link gateway
	PaymentGatewayURL       string
	PaymentGatewayKeyID     string
	PaymentGatewayKeySecret string
	PaymentGatewayRPS       float64
	PaymentLinkExpiry       time.Duration
	Currency                string
	FillerPhone             string
	FillerEmail             string

	// WhatsApp messaging gateway
	WhatsAppAPIURL     string
	WhatsAppAPIKey     string
	WhatsAppTemplateID string
	ReminderStagger    time.Duration

	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Optional link store
	RedisAddr string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	const op = "Load"

	rps, err := getFloatEnv("PAYMENT_GATEWAY_RPS", 2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expiryDays, err := getIntEnv("PAYMENT_LINK_EXPIRY_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stagger, err := getDurationEnv("REMINDER_STAGGER", time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	config := &Config{
		BackendURL: getEnv("BACKEND_URL", ""),
		CentreTokens: map[models.Centre]string{
			models.CentreGKP: getEnv("GKP_API_TOKEN", ""),
			models.CentreLKO: getEnv("LKO_API_TOKEN", ""),
		},
		PaymentGatewayURL:       strings.TrimRight(getEnv("PAYMENT_GATEWAY_URL", "https://api.razorpay.com/v1"), "/"),
		PaymentGatewayKeyID:     getEnv("PAYMENT_GATEWAY_KEY_ID", ""),
		PaymentGatewayKeySecret: getEnv("PAYMENT_GATEWAY_KEY_SECRET", ""),
		PaymentGatewayRPS:       rps,
		PaymentLinkExpiry:       time.Duration(expiryDays) * 24 * time.Hour,
		Currency:                getEnv("CURRENCY", "INR"),
		FillerPhone:             getEnv("FILLER_PHONE", "9999999999"),
		FillerEmail:             getEnv("FILLER_EMAIL", "noreply@example.com"),
		WhatsAppAPIURL:          strings.TrimRight(getEnv("WHATSAPP_API_URL", ""), "/"),
		WhatsAppAPIKey:          getEnv("WHATSAPP_API_KEY", ""),
		WhatsAppTemplateID:      getEnv("WHATSAPP_TEMPLATE_ID", "payment_reminder"),
		ReminderStagger:         stagger,
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		GoogleSheetURL:          getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:    getEnv("GOOGLE_SHEET_WORKSHEET", "Late_Payers"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:           getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:               getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks value formats only. Presence of credentials is checked by
// the Require* methods right before a collaborator is used.
func (c *Config) validate() error {
	if c.PaymentGatewayRPS <= 0 {
		return fmt.Errorf("PAYMENT_GATEWAY_RPS must be positive")
	}
	if c.PaymentLinkExpiry <= 0 {
		return fmt.Errorf("PAYMENT_LINK_EXPIRY_DAYS must be positive")
	}
	if c.ReminderStagger < 0 {
		return fmt.Errorf("REMINDER_STAGGER must not be negative")
	}
	return nil
}

// RequireBackend checks the invoice backend settings for the given centres.
func (c *Config) RequireBackend(centres ...models.Centre) error {
	if c.BackendURL == "" {
		return missing("BACKEND_URL")
	}
	for _, centre := range centres {
		if c.CentreTokens[centre] == "" {
			return missing(strings.ToUpper(string(centre)) + "_API_TOKEN")
		}
	}
	return nil
}

// RequirePaymentGateway checks the payment gateway credentials.
func (c *Config) RequirePaymentGateway() error {
	if c.PaymentGatewayKeyID == "" {
		return missing("PAYMENT_GATEWAY_KEY_ID")
	}
	if c.PaymentGatewayKeySecret == "" {
		return missing("PAYMENT_GATEWAY_KEY_SECRET")
	}
	return nil
}

// RequireLLM checks the OpenAI credentials.
func (c *Config) RequireLLM() error {
	if c.OpenAIAPIKey == "" {
		return missing("OPENAI_API_KEY")
	}
	return nil
}

// RequireSheets checks the Google Sheets target.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return missing("GOOGLE_SHEET_URL")
	}
	return nil
}

// WhatsAppConfigured reports whether reminders go through the messaging API
// instead of WhatsApp Web deep links.
func (c *Config) WhatsAppConfigured() bool {
	return c.WhatsAppAPIKey != "" && c.WhatsAppAPIURL != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func missing(key string) error {
	return fmt.Errorf("%w: %s is not set", ErrMissingConfig, key)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getFloatEnv(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
