package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Sink names accepted in reporters.active.
const (
	SinkConsole       = "console"
	SinkJSON          = "json"
	SinkFormattedFile = "formatted-file"
	SinkTelemetry     = "telemetry"
	SinkPlot          = "plot"

	// Legacy sink names still accepted in configuration files.
	sinkElasticAlias      = "elastic"
	sinkFormatedFileAlias = "formated-file"
)

// KnownSinks lists every sink name, in dispatch order.
var KnownSinks = []string{SinkConsole, SinkJSON, SinkFormattedFile, SinkPlot, SinkTelemetry}

const redacted = "******"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidFactor indicates a negative sampling factor.
	ErrInvalidFactor = errors.New("history.factor must be non-negative")
	// ErrInvalidCopyConcurrency indicates a non-positive copy concurrency.
	ErrInvalidCopyConcurrency = errors.New("history.copy_concurrency must be positive")
	// ErrEmptyWorkspace indicates the workspace path is empty.
	ErrEmptyWorkspace = errors.New("history.workspace must be set")
	// ErrInvalidStepTimeout indicates a negative step timeout.
	ErrInvalidStepTimeout = errors.New("history.step_timeout must be non-negative")
	// ErrInvalidStallGrace indicates a negative stall grace.
	ErrInvalidStallGrace = errors.New("history.stall_grace must be non-negative")
	// ErrEmptyInstallCommand indicates the install command is empty.
	ErrEmptyInstallCommand = errors.New("install.command must not be empty")
	// ErrUnknownSink indicates an unknown name in reporters.active.
	ErrUnknownSink = errors.New("unknown reporter")
	// ErrMissingOutputFile indicates an active file sink without a path.
	ErrMissingOutputFile = errors.New("active file reporter needs an output file")
	// ErrInvalidRateLimit indicates a negative rate limit value.
	ErrInvalidRateLimit = errors.New("reporters.telemetry.rate_limit values must be non-negative")
	// ErrInvalidConcurrency indicates a negative ingestion concurrency.
	ErrInvalidConcurrency = errors.New("reporters.telemetry.max_concurrency must be non-negative")
	// ErrMetricName indicates a metric without a name.
	ErrMetricName = errors.New("every metric needs a name")
)

// Config is the top-level configuration struct for feanalyzer.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Metrics       []MetricConfig      `mapstructure:"metrics"       yaml:"metrics"`
	History       HistoryConfig       `mapstructure:"history"       yaml:"history"`
	Install       InstallConfig       `mapstructure:"install"       yaml:"install"`
	Reporters     ReportersConfig     `mapstructure:"reporters"     yaml:"reporters"`
	Logging       LoggingConfig       `mapstructure:"logging"       yaml:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// MetricConfig declares one metric plugin.
type MetricConfig struct {
	Name         string            `mapstructure:"name"          yaml:"name"`
	Kind         string            `mapstructure:"kind"          yaml:"kind"`
	Package      string            `mapstructure:"package"       yaml:"package,omitempty"`
	Command      []string          `mapstructure:"command"       yaml:"command,omitempty"`
	Schema       map[string]string `mapstructure:"schema"        yaml:"schema,omitempty"`
	ResultSchema string            `mapstructure:"result_schema" yaml:"result_schema,omitempty"`
	Timeout      time.Duration     `mapstructure:"timeout"       yaml:"timeout,omitempty"`
}

// HistoryConfig holds history walk settings.
type HistoryConfig struct {
	Factor          float64       `mapstructure:"factor"           yaml:"factor"`
	Workspace       string        `mapstructure:"workspace"        yaml:"workspace"`
	CopyConcurrency int           `mapstructure:"copy_concurrency" yaml:"copy_concurrency"`
	Exclude         []string      `mapstructure:"exclude"          yaml:"exclude"`
	StepTimeout     time.Duration `mapstructure:"step_timeout"     yaml:"step_timeout"`
	StallGrace      time.Duration `mapstructure:"stall_grace"      yaml:"stall_grace"`
}

// InstallConfig holds the dependency installer settings.
type InstallConfig struct {
	Command   []string `mapstructure:"command"   yaml:"command"`
	Manifests []string `mapstructure:"manifests" yaml:"manifests"`
}

// ReportersConfig selects and configures the report sinks.
type ReportersConfig struct {
	Active        []string           `mapstructure:"active"         yaml:"active"`
	JSON          JSONReporterConfig `mapstructure:"json"           yaml:"json"`
	FormattedFile string             `mapstructure:"formatted_file" yaml:"formatted_file"`
	Plot          PlotReporterConfig `mapstructure:"plot"           yaml:"plot"`
	Telemetry     TelemetryConfig    `mapstructure:"telemetry"      yaml:"telemetry"`
}

// JSONReporterConfig configures the JSON file sink.
type JSONReporterConfig struct {
	OutputFile string `mapstructure:"output_file" yaml:"output_file"`
	Compress   bool   `mapstructure:"compress"    yaml:"compress"`
}

// PlotReporterConfig configures the HTML chart sink.
type PlotReporterConfig struct {
	OutputFile string `mapstructure:"output_file" yaml:"output_file"`
	Title      string `mapstructure:"title"       yaml:"title"`
}

// TelemetryConfig configures the document store used for ingestion.
type TelemetryConfig struct {
	Scheme         string          `mapstructure:"scheme"          yaml:"scheme"`
	Address        string          `mapstructure:"address"         yaml:"address"`
	Port           int             `mapstructure:"port"            yaml:"port"`
	IndexPrefix    string          `mapstructure:"index_prefix"    yaml:"index_prefix"`
	Username       string          `mapstructure:"username"        yaml:"username"`
	Password       string          `mapstructure:"password"        yaml:"password"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"      yaml:"rate_limit"`
	MaxConcurrency int             `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	Timeout        time.Duration   `mapstructure:"timeout"         yaml:"timeout"`
}

// RateLimitConfig allows MaxRequests per PerMilliseconds window. Zero values
// disable the limiter.
type RateLimitConfig struct {
	MaxRequests     int `mapstructure:"max_requests"     yaml:"max_requests"`
	PerMilliseconds int `mapstructure:"per_milliseconds" yaml:"per_milliseconds"`
}

// Window returns the rate limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.PerMilliseconds) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json"  yaml:"json"`
}

// ObservabilityConfig holds OpenTelemetry settings.
type ObservabilityConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"    yaml:"otlp_endpoint"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"    yaml:"otlp_insecure"`
	Environment     string `mapstructure:"environment"      yaml:"environment"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile"`
}

// BaseURL returns the telemetry store root, e.g. http://localhost:9200.
func (t TelemetryConfig) BaseURL() string {
	scheme := t.Scheme
	if scheme == "" {
		scheme = DefaultTelemetryScheme
	}

	host := t.Address
	if t.Port > 0 {
		host = net.JoinHostPort(t.Address, strconv.Itoa(t.Port))
	}

	return scheme + "://" + host
}

// NormalizeSink maps legacy sink names to their current name.
func NormalizeSink(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case sinkElasticAlias:
		return SinkTelemetry
	case sinkFormatedFileAlias:
		return SinkFormattedFile
	default:
		return name
	}
}

// IsActive reports whether the named sink is listed in reporters.active.
func (r ReportersConfig) IsActive(name string) bool {
	for _, active := range r.Active {
		if NormalizeSink(active) == name {
			return true
		}
	}

	return false
}

// ApplyCredentials overrides the telemetry credentials when both are set.
func (c *Config) ApplyCredentials(username, password string) {
	if username == "" || password == "" {
		return
	}

	c.Reporters.Telemetry.Username = username
	c.Reporters.Telemetry.Password = password
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	if out.Reporters.Telemetry.Password != "" {
		out.Reporters.Telemetry.Password = redacted
	}

	return out
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	historyErr := c.validateHistory()
	if historyErr != nil {
		return historyErr
	}

	if len(c.Install.Command) == 0 {
		return ErrEmptyInstallCommand
	}

	for i, m := range c.Metrics {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: metrics[%d]", ErrMetricName, i)
		}
	}

	return c.validateReporters()
}

func (c *Config) validateHistory() error {
	if c.History.Factor < 0 {
		return ErrInvalidFactor
	}

	if c.History.Workspace == "" {
		return ErrEmptyWorkspace
	}

	if c.History.CopyConcurrency <= 0 {
		return ErrInvalidCopyConcurrency
	}

	if c.History.StepTimeout < 0 {
		return ErrInvalidStepTimeout
	}

	if c.History.StallGrace < 0 {
		return ErrInvalidStallGrace
	}

	return nil
}

func (c *Config) validateReporters() error {
	rep := c.Reporters

	for _, name := range rep.Active {
		if !slices.Contains(KnownSinks, NormalizeSink(name)) {
			return fmt.Errorf("%w: %q", ErrUnknownSink, name)
		}
	}

	if rep.IsActive(SinkJSON) && rep.JSON.OutputFile == "" {
		return fmt.Errorf("%w: %s", ErrMissingOutputFile, SinkJSON)
	}

	if rep.IsActive(SinkFormattedFile) && rep.FormattedFile == "" {
		return fmt.Errorf("%w: %s", ErrMissingOutputFile, SinkFormattedFile)
	}

	if rep.IsActive(SinkPlot) && rep.Plot.OutputFile == "" {
		return fmt.Errorf("%w: %s", ErrMissingOutputFile, SinkPlot)
	}

	if rep.Telemetry.RateLimit.MaxRequests < 0 || rep.Telemetry.RateLimit.PerMilliseconds < 0 {
		return ErrInvalidRateLimit
	}

	if rep.Telemetry.MaxConcurrency < 0 {
		return ErrInvalidConcurrency
	}

	return nil
}
