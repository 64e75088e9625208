package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shop_backend/pkg/config"
)

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type MailConfig struct {
	Provider       string
	SendGridAPIKey string
	PostmarkToken  string
	From           string
	FromName       string
	StoreName      string
	ClientURL      string
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int

	AuthWindow      time.Duration
	AuthMaxRequests int
}

type Config struct {
	config.Config

	AllowedOrigins []string
	CookieSecure   bool
	WSSendBuffer   int

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	ES        ESConfig
	Stripe    StripeConfig
	Mail      MailConfig
	RateLimit RateLimitConfig

	OrderNumberPrefix     string
	ShippingFlatRate      decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env file, using process environment", "error", err)
	}

	base := config.Load()

	var req config.Required
	req.NonEmpty(base.DatabaseURL, "DATABASE_URL")
	req.NonEmptyBytes(base.JWTAccessSecret, "JWT_SECRET")
	if err := req.Err(); err != nil {
		return nil, err
	}

	flat, err := decimalEnv("SHIPPING_FLAT_RATE", "0")
	if err != nil {
		return nil, err
	}
	freeOver, err := decimalEnv("FREE_SHIPPING_THRESHOLD", "0")
	if err != nil {
		return nil, err
	}

	return &Config{
		Config: base,

		AllowedOrigins: originsOrDefault(config.CSV(config.EnvDefault("ALLOWED_ORIGINS", ""))),
		CookieSecure:   config.EnvBoolDefault("COOKIE_SECURE", false),
		WSSendBuffer:   config.EnvIntDefault("WS_SEND_BUFFER", 64),

		AccessTTL:  config.EnvDurationDefault("JWT_EXPIRY", 15*time.Minute),
		RefreshTTL: config.EnvDurationDefault("JWT_REFRESH_EXPIRY", 7*24*time.Hour),

		ES: ESConfig{
			URL:      config.EnvDefault("ES_URL", ""),
			User:     config.EnvDefault("ES_USER", ""),
			Password: config.EnvDefault("ES_PASSWORD", ""),
			Index:    config.EnvDefault("ES_INDEX", "products"),
		},
		Stripe: StripeConfig{
			SecretKey:     config.EnvDefault("STRIPE_SECRET_KEY", ""),
			WebhookSecret: config.EnvDefault("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      config.EnvDefault("PAYMENT_CURRENCY", "usd"),
		},
		Mail: MailConfig{
			Provider:       config.EnvDefault("MAIL_PROVIDER", "log"),
			SendGridAPIKey: config.EnvDefault("SENDGRID_API_KEY", ""),
			PostmarkToken:  config.EnvDefault("POSTMARK_SERVER_TOKEN", ""),
			From:           config.EnvDefault("MAIL_FROM", "no-reply@example.com"),
			FromName:       config.EnvDefault("MAIL_FROM_NAME", "Shop"),
			StoreName:      config.EnvDefault("STORE_NAME", "Shop"),
			ClientURL:      config.EnvDefault("CLIENT_URL", "http://localhost:3000"),
		},
		RateLimit: RateLimitConfig{
			Window:          config.EnvDurationDefault("RATE_LIMIT_WINDOW", 15*time.Minute),
			MaxRequests:     config.EnvIntDefault("RATE_LIMIT_MAX_REQUESTS", 100),
			AuthWindow:      config.EnvDurationDefault("AUTH_RATE_LIMIT_WINDOW", time.Hour),
			AuthMaxRequests: config.EnvIntDefault("AUTH_RATE_LIMIT_MAX_REQUESTS", 5),
		},

		OrderNumberPrefix:     config.EnvDefault("ORDER_NUMBER_PREFIX", "BC"),
		ShippingFlatRate:      flat,
		FreeShippingThreshold: freeOver,
	}, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func decimalEnv(key, def string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(config.EnvDefault(key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func originsOrDefault(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return origins
}
