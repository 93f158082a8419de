package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
)

func TestDefaultConfig_HasSensibleDefaults(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "feanalyzer", cfg.ServiceName)
	assert.Equal(t, observability.ModeRun, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Positive(t, cfg.ShutdownTimeoutSec)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	var buf bytes.Buffer

	providers, err := observability.InitWithWriter(observability.DefaultConfig(), &buf)
	require.NoError(t, err)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_LoggerHasTracingHandler(t *testing.T) {
	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Mode = observability.ModeHistory

	providers, err := observability.InitWithWriter(cfg, &buf)
	require.NoError(t, err)

	providers.Logger.Info("hello")

	assert.Contains(t, buf.String(), `"mode":"history"`)
	assert.Contains(t, buf.String(), `"service":"feanalyzer"`)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_LogLevelFilters(t *testing.T) {
	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	providers, err := observability.InitWithWriter(cfg, &buf)
	require.NoError(t, err)

	providers.Logger.Info("quiet")
	assert.Empty(t, buf.String())

	providers.Logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestInit_WritesMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feanalyzer.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = path

	providers, err := observability.InitWithWriter(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	pm, err := observability.NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	pm.CommitMeasured(context.Background())
	pm.SinkFailed(context.Background(), "plot")

	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "feanalyzer_history_commits_measured")
	assert.Contains(t, string(data), `sink="plot"`)
}
