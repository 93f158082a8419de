// Package config provides YAML-based configuration for feanalyzer.
package config

import "time"

// History defaults.
const (
	DefaultHistoryFactor          = 1.0
	DefaultHistoryWorkspace       = "/tmp/repo-analyzer"
	DefaultHistoryCopyConcurrency = 16
	DefaultHistoryStepTimeout     = 30 * time.Minute
	DefaultHistoryStallGrace      = time.Minute
)

// DefaultHistoryExclude lists directory names never copied into the workspace.
var DefaultHistoryExclude = []string{"node_modules"}

// Install defaults.
var (
	DefaultInstallCommand   = []string{"npm", "install"}
	DefaultInstallManifests = []string{"package.json", "package-lock.json"}
)

// Reporter defaults.
const (
	DefaultJSONOutputFile    = "feanalyzer-results.json"
	DefaultFormattedFile     = "feanalyzer-results.txt"
	DefaultPlotOutputFile    = "feanalyzer-history.html"
	DefaultPlotTitle         = "Frontend metrics history"
	DefaultTelemetryScheme   = "http"
	DefaultTelemetryAddress  = "localhost"
	DefaultTelemetryPort     = 9200
	DefaultTelemetryPrefix   = "fe"
	DefaultTelemetryTimeout  = 10 * time.Second
	DefaultMaxRequests       = 10
	DefaultPerMilliseconds   = 1000
	DefaultIngestConcurrency = 8
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)
