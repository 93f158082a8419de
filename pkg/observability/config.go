// Package observability provides OpenTelemetry tracing, pipeline metrics and
// structured logging for feanalyzer.
package observability

import (
	"fmt"
	"log/slog"
	"strings"
)

// AppMode identifies which command is running.
type AppMode string

const (
	// ModeRun measures the current working copy.
	ModeRun AppMode = "run"
	// ModeHistory walks the commit history.
	ModeHistory AppMode = "history"
	// ModeIndexes creates telemetry indexes.
	ModeIndexes AppMode = "indexes"
)

const (
	defaultServiceName        = "feanalyzer"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string
	OTLPInsecure bool

	// MetricsTextfile, when set, receives the pipeline counters in Prometheus
	// text format at shutdown.
	MetricsTextfile string

	LogLevel slog.Level
	LogJSON  bool

	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeRun,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(name)))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", name, err)
	}

	return level, nil
}
