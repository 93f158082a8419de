package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".feanalyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Metrics)
	assert.InDelta(t, config.DefaultHistoryFactor, cfg.History.Factor, 0.0001)
	assert.Equal(t, config.DefaultHistoryWorkspace, cfg.History.Workspace)
	assert.Equal(t, config.DefaultHistoryCopyConcurrency, cfg.History.CopyConcurrency)
	assert.Equal(t, config.DefaultHistoryExclude, cfg.History.Exclude)
	assert.Equal(t, config.DefaultHistoryStepTimeout, cfg.History.StepTimeout)
	assert.Equal(t, config.DefaultInstallCommand, cfg.Install.Command)
	assert.Equal(t, config.DefaultInstallManifests, cfg.Install.Manifests)
	assert.Equal(t, []string{config.SinkConsole}, cfg.Reporters.Active)
	assert.Equal(t, config.DefaultTelemetryPrefix, cfg.Reporters.Telemetry.IndexPrefix)
	assert.Equal(t, config.DefaultMaxRequests, cfg.Reporters.Telemetry.RateLimit.MaxRequests)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `metrics:
  - name: React Version
    kind: package-version
    package: react
  - name: Bundle Size
    kind: command
    command: ["node", "scripts/bundle-size.js"]
    timeout: 2m
    schema:
      result: float
history:
  factor: 2.5
  workspace: /var/tmp/fe
  step_timeout: 10m
reporters:
  active: [console, json, elastic]
  json:
    output_file: out.json
    compress: true
  telemetry:
    address: es.internal
    port: 9243
    scheme: https
    username: bot
    password: s3cret
    rate_limit:
      max_requests: 5
      per_milliseconds: 500
    max_concurrency: 3
logging:
  level: debug
  json: true
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	require.Len(t, cfg.Metrics, 2)
	assert.Equal(t, "React Version", cfg.Metrics[0].Name)
	assert.Equal(t, "react", cfg.Metrics[0].Package)
	assert.Equal(t, []string{"node", "scripts/bundle-size.js"}, cfg.Metrics[1].Command)
	assert.Equal(t, 2*time.Minute, cfg.Metrics[1].Timeout)
	assert.Equal(t, "float", cfg.Metrics[1].Schema["result"])

	assert.InDelta(t, 2.5, cfg.History.Factor, 0.0001)
	assert.Equal(t, "/var/tmp/fe", cfg.History.Workspace)
	assert.Equal(t, 10*time.Minute, cfg.History.StepTimeout)

	assert.True(t, cfg.Reporters.IsActive(config.SinkJSON))
	assert.True(t, cfg.Reporters.IsActive(config.SinkTelemetry))
	assert.False(t, cfg.Reporters.IsActive(config.SinkPlot))
	assert.True(t, cfg.Reporters.JSON.Compress)
	assert.Equal(t, "https://es.internal:9243", cfg.Reporters.Telemetry.BaseURL())
	assert.Equal(t, 500*time.Millisecond, cfg.Reporters.Telemetry.RateLimit.Window())
	assert.Equal(t, 3, cfg.Reporters.Telemetry.MaxConcurrency)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "history: [unclosed"))
	require.Error(t, err)
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "history:\n  factor: -1\n"))
	require.ErrorIs(t, err, config.ErrInvalidFactor)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
