package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"

	minSigningKeyLen = 32
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	AuthMode    string `mapstructure:"AUTH_MODE"`
	Store       string `mapstructure:"STORE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`

	AuthSigningKey    string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer        string        `mapstructure:"AUTH_ISSUER"`
	AuthTokenTTL      time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`

	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	BookingRateLimit  int           `mapstructure:"BOOKING_RATE_LIMIT"`
	BookingRateWindow time.Duration `mapstructure:"BOOKING_RATE_WINDOW"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	Timezone           string `mapstructure:"TIMEZONE"`
	BookingHorizonDays int    `mapstructure:"BOOKING_HORIZON_DAYS"`

	OTelEnabled       bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint      string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`
	OTelServiceName   string  `mapstructure:"OTEL_SERVICE_NAME"`
}

var defaults = map[string]interface{}{
	"PORT":                 "8080",
	"ENV":                  "development",
	"AUTH_MODE":            "", // inferred from ENV
	"STORE":                StorePostgres,
	"DB_MAX_CONNS":         10,
	"DB_MIN_CONNS":         2,
	"OUTBOX_POLL_INTERVAL": "2s",
	"AUTH_ISSUER":          "barberia-cobran",
	"AUTH_TOKEN_TTL":       "12h",
	"CORS_ORIGINS":         "http://localhost:3000",
	"RATE_LIMIT_RPS":       10,
	"RATE_LIMIT_BURST":     20,
	"BOOKING_RATE_LIMIT":   5,
	"BOOKING_RATE_WINDOW":  "10m",
	"BODY_LIMIT":           "64K",
	"REQUEST_TIMEOUT":      "15s",
	"TIMEZONE":             "America/Argentina/Buenos_Aires",
	"BOOKING_HORIZON_DAYS": 30,
	"OTEL_ENABLED":         false,
	"OTEL_SAMPLING_RATIO":  1.0,
	"OTEL_SERVICE_NAME":    "barberia-cobran",
}

var envKeys = []string{
	"PORT", "ENV", "AUTH_MODE", "STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"KAFKA_BROKERS", "OUTBOX_POLL_INTERVAL",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_TOKEN_TTL", "ADMIN_PASSWORD_HASH",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BOOKING_RATE_LIMIT", "BOOKING_RATE_WINDOW",
	"BODY_LIMIT", "REQUEST_TIMEOUT", "TIMEZONE", "BOOKING_HORIZON_DAYS",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLING_RATIO", "OTEL_SERVICE_NAME",
}

// Load reads .env (optional) and the environment. It does not validate;
// call Validate before using the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	return cfg, nil
}

// splitList flattens comma-joined entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise "development" in
// the development environment and "jwt" everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// Location loads the business timezone used for civil dates.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE is %q", StorePostgres)
		}
	case StoreMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE=%q is not allowed in production", StoreMemory)
		}
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=%q is not allowed in production", AuthModeDevelopment)
		}
	case AuthModeJWT:
		if len(c.AuthSigningKey) < minSigningKeyLen {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least %d characters", minSigningKeyLen)
		}
		if c.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH is required when AUTH_MODE is %q", AuthModeJWT)
		}
		if c.AuthTokenTTL <= 0 {
			return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeJWT, mode)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.BookingHorizonDays < 1 || c.BookingHorizonDays > 365 {
		return fmt.Errorf("BOOKING_HORIZON_DAYS must be between 1 and 365, got %d", c.BookingHorizonDays)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RedisURL != "" && (c.BookingRateLimit <= 0 || c.BookingRateWindow <= 0) {
		return fmt.Errorf("BOOKING_RATE_LIMIT and BOOKING_RATE_WINDOW must be positive when REDIS_URL is set")
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0, 1], got %v", c.OTelSamplingRatio)
	}
	if c.OTelEnabled && c.OTelEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is true")
	}
	return nil
}

// Warnings lists settings that are valid but should not reach production.
func (c *Config) Warnings() []string {
	var w []string
	if c.ResolvedAuthMode() == AuthModeDevelopment {
		w = append(w, "development auth is active: every request is treated as admin")
	}
	if c.Store == StoreMemory {
		w = append(w, "memory store is active: data is lost on restart and booking is serialized per process only")
	}
	if c.RedisURL == "" {
		w = append(w, "REDIS_URL is not set: booking rate limit is per instance")
	}
	return w
}
