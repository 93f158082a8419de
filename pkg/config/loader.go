package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".feanalyzer"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for feanalyzer settings.
const envPrefix = "FEANALYZER"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			Factor:          DefaultHistoryFactor,
			Workspace:       DefaultHistoryWorkspace,
			CopyConcurrency: DefaultHistoryCopyConcurrency,
			Exclude:         append([]string(nil), DefaultHistoryExclude...),
			StepTimeout:     DefaultHistoryStepTimeout,
			StallGrace:      DefaultHistoryStallGrace,
		},
		Install: InstallConfig{
			Command:   append([]string(nil), DefaultInstallCommand...),
			Manifests: append([]string(nil), DefaultInstallManifests...),
		},
		Reporters: ReportersConfig{
			Active:        []string{SinkConsole},
			JSON:          JSONReporterConfig{OutputFile: DefaultJSONOutputFile},
			FormattedFile: DefaultFormattedFile,
			Plot:          PlotReporterConfig{OutputFile: DefaultPlotOutputFile, Title: DefaultPlotTitle},
			Telemetry: TelemetryConfig{
				Scheme:         DefaultTelemetryScheme,
				Address:        DefaultTelemetryAddress,
				Port:           DefaultTelemetryPort,
				IndexPrefix:    DefaultTelemetryPrefix,
				MaxConcurrency: DefaultIngestConcurrency,
				Timeout:        DefaultTelemetryTimeout,
				RateLimit: RateLimitConfig{
					MaxRequests:     DefaultMaxRequests,
					PerMilliseconds: DefaultPerMilliseconds,
				},
			},
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("metrics", []map[string]any{})

	viperCfg.SetDefault("history.factor", DefaultHistoryFactor)
	viperCfg.SetDefault("history.workspace", DefaultHistoryWorkspace)
	viperCfg.SetDefault("history.copy_concurrency", DefaultHistoryCopyConcurrency)
	viperCfg.SetDefault("history.exclude", DefaultHistoryExclude)
	viperCfg.SetDefault("history.step_timeout", DefaultHistoryStepTimeout)
	viperCfg.SetDefault("history.stall_grace", DefaultHistoryStallGrace)

	viperCfg.SetDefault("install.command", DefaultInstallCommand)
	viperCfg.SetDefault("install.manifests", DefaultInstallManifests)

	viperCfg.SetDefault("reporters.active", []string{SinkConsole})
	viperCfg.SetDefault("reporters.json.output_file", DefaultJSONOutputFile)
	viperCfg.SetDefault("reporters.json.compress", false)
	viperCfg.SetDefault("reporters.formatted_file", DefaultFormattedFile)
	viperCfg.SetDefault("reporters.plot.output_file", DefaultPlotOutputFile)
	viperCfg.SetDefault("reporters.plot.title", DefaultPlotTitle)

	viperCfg.SetDefault("reporters.telemetry.scheme", DefaultTelemetryScheme)
	viperCfg.SetDefault("reporters.telemetry.address", DefaultTelemetryAddress)
	viperCfg.SetDefault("reporters.telemetry.port", DefaultTelemetryPort)
	viperCfg.SetDefault("reporters.telemetry.index_prefix", DefaultTelemetryPrefix)
	viperCfg.SetDefault("reporters.telemetry.username", "")
	viperCfg.SetDefault("reporters.telemetry.password", "")
	viperCfg.SetDefault("reporters.telemetry.rate_limit.max_requests", DefaultMaxRequests)
	viperCfg.SetDefault("reporters.telemetry.rate_limit.per_milliseconds", DefaultPerMilliseconds)
	viperCfg.SetDefault("reporters.telemetry.max_concurrency", DefaultIngestConcurrency)
	viperCfg.SetDefault("reporters.telemetry.timeout", DefaultTelemetryTimeout)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.metrics_textfile", "")
}
