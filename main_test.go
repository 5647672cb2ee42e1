package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"shopgate/internal/config"
	"shopgate/pkg/rabbitmq"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig(t *testing.T, values map[string]interface{}) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("BCRYPT_COST", 4)
	for k, val := range values {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestHealthCheck(t *testing.T) {
	a, err := newApplication(testConfig(t, nil))
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestApplicationWiring(t *testing.T) {
	drivers := map[string]map[string]interface{}{
		"memory": nil,
		"sqlite": {"DATABASE_DRIVER": "sqlite", "DATABASE_DSN": "file:wiring?mode=memory&cache=shared"},
	}
	for name, values := range drivers {
		t.Run(name, func(t *testing.T) {
			a, err := newApplication(testConfig(t, values))
			require.NoError(t, err)
			defer a.Close()

			signup, _ := json.Marshal(map[string]interface{}{
				"username": "alice",
				"password": "Secret1!",
				"shops":    []string{"shop1", "shop2", "shop3"},
			})
			req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader(signup))
			req.Header.Set("Content-Type", "application/json")
			resp, err := a.app.Test(req, -1)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusCreated, resp.StatusCode)

			req = httptest.NewRequest(http.MethodGet, "/shop/shop1", nil)
			resp, err = a.app.Test(req, -1)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/signin", resp.Header.Get("Location"))
		})
	}
}

func TestNewApplication_BadDSN(t *testing.T) {
	_, err := newApplication(testConfig(t, map[string]interface{}{
		"DATABASE_DRIVER": "postgres",
		"DATABASE_DSN":    "host=127.0.0.1 port=1 user=none dbname=none sslmode=disable connect_timeout=1",
	}))
	assert.Error(t, err)
}

func TestLogAccountEvent(t *testing.T) {
	body, err := rabbitmq.EncodeEvent("account.created", map[string]string{"username": "alice"}, time.Now())
	require.NoError(t, err)
	ev, err := rabbitmq.DecodeEvent(body)
	require.NoError(t, err)
	assert.NoError(t, logAccountEvent(ev))
}
