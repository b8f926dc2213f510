package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Logs   LogConfig
	DB     PostgresConfig
	Auth   AuthConfig
	Stripe StripeConfig
	AI     AIConfig
	Redis  RedisConfig
}

type ServerConfig struct {
	Addr           string
	GinMode        string
	AllowedOrigins []string
}

type LogConfig struct {
	Style string // "json" or "console"
	Level string
}

type PostgresConfig struct {
	DSN      string // DATABASE_URL wins over the discrete fields when set
	Username string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	Issuer             string
	Audience           string
	JWKSURL            string
	Disabled           bool
	ClerkWebhookSecret string
}

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	PriceIDPremium   string
	FrontendURL      string
	CheckoutReturnTo string
	PortalReturnTo   string
}

type AIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	PillarMaxTokens int
	TaskMaxTokens   int
}

type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	GenerationLimit  int
	GenerationWindow time.Duration
}

// LoadConfig reads configuration from the environment (and .env when present).
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_STYLE", "json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "postgres")
	v.SetDefault("POSTGRES_SSLMODE", "require")
	v.SetDefault("STRIPE_CHECKOUT_RETURN_PATH", "/dashboard")
	v.SetDefault("STRIPE_PORTAL_RETURN_PATH", "/dashboard")
	v.SetDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1")
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	v.SetDefault("ANTHROPIC_TIMEOUT", "90s")
	v.SetDefault("AI_PILLAR_MAX_TOKENS", 1000)
	v.SetDefault("AI_TASK_MAX_TOKENS", 4000)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GENERATION_LIMIT", 10)
	v.SetDefault("GENERATION_WINDOW", "1h")

	cfg := &Config{
		Server: ServerConfig{
			Addr:           v.GetString("HTTP_ADDR"),
			GinMode:        v.GetString("GIN_MODE"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Logs: LogConfig{
			Style: v.GetString("LOG_STYLE"),
			Level: v.GetString("LOG_LEVEL"),
		},
		DB: PostgresConfig{
			DSN:      v.GetString("DATABASE_URL"),
			Username: v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PWD"),
			Host:     v.GetString("POSTGRES_URL"),
			Port:     v.GetString("POSTGRES_PORT"),
			Name:     v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Auth: AuthConfig{
			Issuer:             v.GetString("CLERK_ISSUER"),
			Audience:           v.GetString("CLERK_AUDIENCE"),
			JWKSURL:            v.GetString("CLERK_JWKS_URL"),
			Disabled:           v.GetBool("AUTH_DISABLED"),
			ClerkWebhookSecret: v.GetString("CLERK_WEBHOOK_SECRET"),
		},
		Stripe: StripeConfig{
			SecretKey:        v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:    v.GetString("STRIPE_WEBHOOK_SECRET"),
			PriceIDPremium:   v.GetString("STRIPE_PRICE_ID_PREMIUM_MONTHLY"),
			FrontendURL:      strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
			CheckoutReturnTo: v.GetString("STRIPE_CHECKOUT_RETURN_PATH"),
			PortalReturnTo:   v.GetString("STRIPE_PORTAL_RETURN_PATH"),
		},
		AI: AIConfig{
			APIKey:          v.GetString("ANTHROPIC_API_KEY"),
			BaseURL:         strings.TrimRight(v.GetString("ANTHROPIC_BASE_URL"), "/"),
			Model:           v.GetString("ANTHROPIC_MODEL"),
			Timeout:         v.GetDuration("ANTHROPIC_TIMEOUT"),
			PillarMaxTokens: v.GetInt("AI_PILLAR_MAX_TOKENS"),
			TaskMaxTokens:   v.GetInt("AI_TASK_MAX_TOKENS"),
		},
		Redis: RedisConfig{
			Addr:             v.GetString("REDIS_ADDR"),
			Password:         v.GetString("REDIS_PASSWORD"),
			DB:               v.GetInt("REDIS_DB"),
			GenerationLimit:  v.GetInt("GENERATION_LIMIT"),
			GenerationWindow: v.GetDuration("GENERATION_WINDOW"),
		},
	}

	return cfg, nil
}

// Validate reports the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.DSN == "" && c.DB.Host == "" {
		errs = append(errs, errors.New("DATABASE_URL or POSTGRES_URL must be set"))
	}
	if !c.Auth.Disabled && c.Auth.Issuer == "" {
		errs = append(errs, errors.New("CLERK_ISSUER must be set unless AUTH_DISABLED=true"))
	}
	if c.Redis.Addr != "" && (c.Redis.GenerationLimit <= 0 || c.Redis.GenerationWindow <= 0) {
		errs = append(errs, errors.New("GENERATION_LIMIT and GENERATION_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// ConnString builds the lib/pq connection string.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   fmt.Sprintf("%s:%s", p.Host, p.Port),
		Path:   "/" + p.Name,
	}
	if p.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(p.SSLMode)
	}
	return u.String()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
