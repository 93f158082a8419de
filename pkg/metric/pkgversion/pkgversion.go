// Package pkgversion implements a metric that reports the version range a
// project declares for one of its npm dependencies.
package pkgversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
)

// Kind is the configuration kind for this metric.
const Kind = "package-version"

const manifestName = "package.json"

// ErrDependencyNotFound is returned when the package is not declared.
var ErrDependencyNotFound = errors.New("dependency not declared")

// Metric reads the declared version of Package, e.g. "^3.14.1".
type Metric struct {
	name    string
	pkgName string
}

// New creates the metric. Its name should contain "Version" so telemetry
// stores the numeric major.minor form.
func New(name, pkgName string) *Metric {
	return &Metric{name: name, pkgName: pkgName}
}

// Info implements metric.Metric.
func (m *Metric) Info() metric.Info {
	return metric.Info{Name: m.name}
}

// Schema implements metric.Metric.
func (m *Metric) Schema() metric.Schema {
	return metric.Schema{"result": {Type: "float"}}
}

type manifest struct {
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// Measure implements metric.Metric.
func (m *Metric) Measure(_ context.Context, target metric.Target) (any, error) {
	data, err := os.ReadFile(filepath.Join(target.Dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", manifestName, err)
	}

	var mf manifest

	err = json.Unmarshal(data, &mf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestName, err)
	}

	for _, deps := range []map[string]string{mf.Dependencies, mf.DevDependencies, mf.PeerDependencies} {
		if version, ok := deps[m.pkgName]; ok {
			return version, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrDependencyNotFound, m.pkgName)
}
