// Package metric defines the capability set of a measurement plugin and the
// result types that flow from the history walk to the reporters.
package metric

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

// Sentinel errors for metric registration and measurement.
var (
	// ErrDuplicateMetric is returned when two metrics share a name.
	ErrDuplicateMetric = errors.New("duplicate metric name")
	// ErrUnnamedMetric is returned when a metric reports an empty name.
	ErrUnnamedMetric = errors.New("metric has no name")
	// ErrMeasurementFailed wraps a single metric's measurement failure.
	ErrMeasurementFailed = errors.New("measurement failed")
)

// Info describes a metric.
type Info struct {
	Name string `json:"name"`
}

// Field is one index field type, e.g. {"type": "float"}.
type Field struct {
	Type string `json:"type"`
}

// Schema maps document fields to their index types.
type Schema map[string]Field

// Target is what a metric measures: a checked-out working copy.
type Target struct {
	Repo *repo.Handle
	Dir  string
}

// Metric is a pluggable unit of measurement.
type Metric interface {
	Info() Info
	Schema() Schema
	// Measure returns a structured (map[string]any), primitive or nil result.
	Measure(ctx context.Context, target Target) (any, error)
}

// Result is one metric's outcome for one commit. A nil Value means the metric
// could not be measured.
type Result struct {
	Name  string `json:"name"`
	Value any    `json:"result"`
}

// Structured returns the value as a map when it is one.
func (r Result) Structured() (map[string]any, bool) {
	m, ok := r.Value.(map[string]any)

	return m, ok
}

// CommitResult holds every metric measured for one commit.
type CommitResult struct {
	Repository string   `json:"repository"`
	Metrics    []Result `json:"metrics"`
	Hash       string   `json:"hash,omitempty"`
}

// Lookup returns the result for the named metric.
func (c *CommitResult) Lookup(name string) (Result, bool) {
	for _, res := range c.Metrics {
		if res.Name == name {
			return res, true
		}
	}

	return Result{}, false
}

// Registry is the ordered, name-unique set of metrics configured for a run.
type Registry struct {
	metrics []Metric
	byName  map[string]Metric
}

// NewRegistry builds a registry, preserving the given order.
func NewRegistry(metrics ...Metric) (*Registry, error) {
	reg := &Registry{
		metrics: make([]Metric, 0, len(metrics)),
		byName:  make(map[string]Metric, len(metrics)),
	}

	for _, m := range metrics {
		name := m.Info().Name
		if name == "" {
			return nil, ErrUnnamedMetric
		}

		if _, dup := reg.byName[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateMetric, name)
		}

		reg.byName[name] = m
		reg.metrics = append(reg.metrics, m)
	}

	return reg, nil
}

// Metrics returns the metrics in registration order.
func (r *Registry) Metrics() []Metric {
	out := make([]Metric, len(r.metrics))
	copy(out, r.metrics)

	return out
}

// Names returns the metric names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		names[i] = m.Info().Name
	}

	return names
}

// Lookup returns the metric registered under name.
func (r *Registry) Lookup(name string) (Metric, bool) {
	m, ok := r.byName[name]

	return m, ok
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	return len(r.metrics)
}
