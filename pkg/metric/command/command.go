// Package command implements a metric backed by an external program that
// prints its result as JSON on stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
)

// Kind is the configuration kind for this metric.
const Kind = "command"

// envRepoLabel exposes the repository label to the command.
const envRepoLabel = "FEANALYZER_REPOSITORY"

// Sentinel errors.
var (
	ErrNoCommand     = errors.New("command metric needs a command")
	ErrInvalidOutput = errors.New("command output does not match schema")
)

// Options configures a command metric.
type Options struct {
	Name    string
	Argv    []string
	Schema  metric.Schema
	Timeout time.Duration

	// ResultSchemaFile is an optional JSON Schema the output must satisfy.
	ResultSchemaFile string
}

// Metric runs Argv in the target directory.
type Metric struct {
	opts      Options
	validator *gojsonschema.Schema
}

// New creates a command metric, compiling the result schema if one is set.
func New(opts Options) (*Metric, error) {
	if len(opts.Argv) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCommand, opts.Name)
	}

	m := &Metric{opts: opts}

	if opts.ResultSchemaFile != "" {
		raw, err := os.ReadFile(opts.ResultSchemaFile)
		if err != nil {
			return nil, fmt.Errorf("read result schema: %w", err)
		}

		validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile result schema: %w", err)
		}

		m.validator = validator
	}

	return m, nil
}

// Info implements metric.Metric.
func (m *Metric) Info() metric.Info {
	return metric.Info{Name: m.opts.Name}
}

// Schema implements metric.Metric.
func (m *Metric) Schema() metric.Schema {
	return m.opts.Schema
}

// Measure implements metric.Metric.
func (m *Metric) Measure(ctx context.Context, target metric.Target) (any, error) {
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	//nolint:gosec // the command comes from the operator's configuration.
	cmd := exec.CommandContext(ctx, m.opts.Argv[0], m.opts.Argv[1:]...)
	cmd.Dir = target.Dir
	cmd.Env = os.Environ()

	if target.Repo != nil {
		cmd.Env = append(cmd.Env, envRepoLabel+"="+target.Repo.Label)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", m.opts.Argv[0], err, strings.TrimSpace(stderr.String()))
	}

	var value any

	err = json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &value)
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", m.opts.Argv[0], err)
	}

	err = m.validate(value)
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (m *Metric) validate(value any) error {
	if m.validator == nil {
		return nil
	}

	res, err := m.validator.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return fmt.Errorf("validate output: %w", err)
	}

	if res.Valid() {
		return nil
	}

	problems := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidOutput, strings.Join(problems, "; "))
}
