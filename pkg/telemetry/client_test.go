package telemetry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/telemetry"
)

// telemetryConfig points a TelemetryConfig at srv.
func telemetryConfig(t *testing.T, srv *httptest.Server) config.TelemetryConfig {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return config.TelemetryConfig{
		Scheme:   u.Scheme,
		Address:  u.Hostname(),
		Port:     port,
		Username: "elastic",
		Password: "changeme",
		Timeout:  5 * time.Second,
	}
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rate.Inf, telemetry.NewLimiter(config.RateLimitConfig{}).Limit())

	lim := telemetry.NewLimiter(config.RateLimitConfig{MaxRequests: 10, PerMilliseconds: 1000})
	assert.InDelta(t, 10.0, float64(lim.Limit()), 1e-9)
	assert.Equal(t, 10, lim.Burst())
}

func TestClient_IndexDocument(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotUser string
		gotPass string
		gotDoc  map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotDoc)

		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	client := telemetry.NewClient(telemetryConfig(t, srv))

	err := client.IndexDocument(context.Background(), "fe-bundle-size", map[string]any{"result": 42})
	require.NoError(t, err)

	assert.Equal(t, "POST /fe-bundle-size/_doc", gotPath)
	assert.Equal(t, "elastic", gotUser)
	assert.Equal(t, "changeme", gotPass)
	assert.InDelta(t, 42.0, gotDoc["result"], 1e-9)
}

func TestClient_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"mapper_parsing_exception"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	err := telemetry.NewClient(telemetryConfig(t, srv)).IndexDocument(context.Background(), "fe-x", map[string]any{})
	require.ErrorIs(t, err, telemetry.ErrUnexpectedStatus)

	var statusErr *telemetry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Body, "mapper_parsing_exception")
	assert.False(t, statusErr.Temporary())
}

func TestClient_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := telemetryConfig(t, srv)
	cfg.RateLimit = config.RateLimitConfig{MaxRequests: 2, PerMilliseconds: 200}

	client := telemetry.NewClient(cfg)
	start := time.Now()

	for range 4 {
		require.NoError(t, client.IndexDocument(context.Background(), "fe-x", map[string]any{}))
	}

	// Two requests fit the burst; the other two wait 100ms each.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
