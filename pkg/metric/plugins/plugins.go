// Package plugins builds the metric registry from configuration.
package plugins

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/command"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/pkgversion"
)

// Sentinel errors.
var (
	ErrUnknownKind    = errors.New("unknown metric kind")
	ErrMissingPackage = errors.New("package-version metric needs a package")
)

// Build instantiates every configured metric, in configuration order.
func Build(cfgs []config.MetricConfig) (*metric.Registry, error) {
	metrics := make([]metric.Metric, 0, len(cfgs))

	for _, cfg := range cfgs {
		m, err := build(cfg)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", cfg.Name, err)
		}

		metrics = append(metrics, m)
	}

	return metric.NewRegistry(metrics...)
}

func build(cfg config.MetricConfig) (metric.Metric, error) {
	switch cfg.Kind {
	case pkgversion.Kind:
		if cfg.Package == "" {
			return nil, ErrMissingPackage
		}

		return pkgversion.New(cfg.Name, cfg.Package), nil
	case command.Kind:
		return command.New(command.Options{
			Name:             cfg.Name,
			Argv:             cfg.Command,
			Schema:           schemaFromConfig(cfg.Schema),
			Timeout:          cfg.Timeout,
			ResultSchemaFile: cfg.ResultSchema,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func schemaFromConfig(fields map[string]string) metric.Schema {
	if len(fields) == 0 {
		return nil
	}

	schema := make(metric.Schema, len(fields))
	for name, typ := range fields {
		schema[name] = metric.Field{Type: typ}
	}

	return schema
}
