package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shopgate/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper(nil))
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "memory", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, config.TransportBearer, cfg.SessionTransport)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.SigninRateLimit)
	assert.Equal(t, time.Minute, cfg.SigninRateWindow)
	assert.NotEmpty(t, cfg.JWTSecret, "development gets a fallback secret")
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]interface{}{
		"APP_ENV":              "production",
		"JWT_SECRET":           "s3cret",
		"DATABASE_DRIVER":      "Postgres",
		"DATABASE_DSN":         "host=db user=app",
		"SESSION_TRANSPORT":    "COOKIE",
		"STORE_TIMEOUT":        "250ms",
		"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com,,",
		"BASE_DOMAIN":          "example.com",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, config.TransportCookie, cfg.SessionTransport)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "example.com", cfg.BaseDomain)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"missing secret in production": {"APP_ENV": "production"},
		"unknown transport":            {"SESSION_TRANSPORT": "header"},
		"unknown driver":               {"DATABASE_DRIVER": "mysql"},
		"sqlite without dsn":           {"DATABASE_DRIVER": "sqlite"},
		"non-positive timeout":         {"STORE_TIMEOUT": "0s"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromViper(newViper(values))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET: from-file\nSIGNIN_RATE_LIMIT: 3\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 3, cfg.SigninRateLimit)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}
