package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session transports.
const (
	TransportBearer = "bearer"
	TransportCookie = "cookie"
)

// Config holds the application configuration.
type Config struct {
	AppEnv  string
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string
	StoreTimeout   time.Duration

	JWTSecret        string
	SessionTransport string
	CookieSecure     bool
	BcryptCost       int
	BaseDomain       string

	CORSAllowedOrigins []string

	RedisURL         string
	SigninRateLimit  int
	SigninRateWindow time.Duration

	RabbitMQURL string
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "memory")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TRANSPORT", TransportBearer)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("BASE_DOMAIN", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SIGNIN_RATE_LIMIT", 10)
	v.SetDefault("SIGNIN_RATE_WINDOW", "1m")
	v.SetDefault("RABBITMQ_URL", "")
}

// Load reads the configuration from environment variables and, when
// CONFIG_FILE is set, from that file.
func Load() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppEnv:             v.GetString("APP_ENV"),
		AppPort:            v.GetString("APP_PORT"),
		DatabaseDriver:     strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		StoreTimeout:       v.GetDuration("STORE_TIMEOUT"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		SessionTransport:   strings.ToLower(v.GetString("SESSION_TRANSPORT")),
		CookieSecure:       v.GetBool("COOKIE_SECURE"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		BaseDomain:         v.GetString("BASE_DOMAIN"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RedisURL:           v.GetString("REDIS_URL"),
		SigninRateLimit:    v.GetInt("SIGNIN_RATE_LIMIT"),
		SigninRateWindow:   v.GetDuration("SIGNIN_RATE_WINDOW"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks for values the app cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "dev-only-insecure-secret"
	}
	switch c.SessionTransport {
	case TransportBearer, TransportCookie:
	default:
		return fmt.Errorf("SESSION_TRANSPORT must be %q or %q, got %q", TransportBearer, TransportCookie, c.SessionTransport)
	}
	switch c.DatabaseDriver {
	case "memory":
	case "postgres", "sqlite":
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
