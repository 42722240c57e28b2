package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration read from the environment (and .env when present).
type Config struct {
	Port    string
	Env     string
	Storage string // postgres | memory

	DatabaseURL   string
	RedisURL      string
	RabbitMQURL   string
	OrderExchange string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	Currency        string
	InvoicePrefix   string
	TaxRateBps      int64
	InvoiceDir      string
	DuplicateWindow time.Duration

	SMTP     SMTPConfig
	WhatsApp WhatsAppConfig

	AdminNotifyEmail string
	AdminWhatsApp    string

	PaymentBaseURL       string
	PaymentWebhookSecret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type WhatsAppConfig struct {
	APIURL  string
	Token   string
	PhoneID string
}

var prefixPattern = regexp.MustCompile(`^[A-Z]{2,4}$`)

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:    getenv("APP_PORT", "8080"),
		Env:     getenv("APP_ENV", "dev"),
		Storage: getenv("STORAGE", "postgres"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		OrderExchange: getenv("ORDER_EXCHANGE", "orders"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Currency:      getenv("CURRENCY", "USD"),
		InvoicePrefix: getenv("INVOICE_PREFIX", "FRN"),
		InvoiceDir:    getenv("INVOICE_DIR", "./invoices"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:  getenv("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),
			Token:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneID: os.Getenv("WHATSAPP_PHONE_ID"),
		},
		AdminNotifyEmail: os.Getenv("ADMIN_NOTIFY_EMAIL"),
		AdminWhatsApp:    os.Getenv("ADMIN_WHATSAPP"),

		PaymentBaseURL:       getenv("PAYMENT_BASE_URL", "http://localhost:8080/pay"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
	}

	var err error
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	bps, err := getInt("TAX_RATE_BPS", 0)
	if err != nil {
		return nil, err
	}
	cfg.TaxRateBps = int64(bps)
	if cfg.DuplicateWindow, err = getDuration("DUPLICATE_WINDOW", 2*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if !prefixPattern.MatchString(c.InvoicePrefix) {
		return fmt.Errorf("INVOICE_PREFIX must be 2-4 uppercase letters, got %q", c.InvoicePrefix)
	}
	if c.TaxRateBps < 0 || c.TaxRateBps > 10000 {
		return fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000, got %d", c.TaxRateBps)
	}
	if c.DuplicateWindow <= 0 {
		return fmt.Errorf("DUPLICATE_WINDOW must be positive")
	}
	switch c.Storage {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE must be postgres or memory, got %q", c.Storage)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
