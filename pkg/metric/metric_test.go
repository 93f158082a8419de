package metric_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

var errBroken = errors.New("broken")

type stubMetric struct {
	name   string
	schema metric.Schema
	value  any
	err    error
	calls  int
}

func (s *stubMetric) Info() metric.Info { return metric.Info{Name: s.name} }

func (s *stubMetric) Schema() metric.Schema { return s.schema }

func (s *stubMetric) Measure(_ context.Context, _ metric.Target) (any, error) {
	s.calls++

	return s.value, s.err
}

func TestNewRegistry_KeepsOrder(t *testing.T) {
	t.Parallel()

	reg, err := metric.NewRegistry(
		&stubMetric{name: "Bundle Size"},
		&stubMetric{name: "Framework Version"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bundle Size", "Framework Version"}, reg.Names())
	assert.Equal(t, 2, reg.Len())

	found, ok := reg.Lookup("Framework Version")
	require.True(t, ok)
	assert.Equal(t, "Framework Version", found.Info().Name)
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := metric.NewRegistry(&stubMetric{name: "A"}, &stubMetric{name: "A"})
	require.ErrorIs(t, err, metric.ErrDuplicateMetric)
}

func TestNewRegistry_RejectsUnnamed(t *testing.T) {
	t.Parallel()

	_, err := metric.NewRegistry(&stubMetric{})
	require.ErrorIs(t, err, metric.ErrUnnamedMetric)
}

func TestSuite_MeasureIsolatesFailingMetric(t *testing.T) {
	t.Parallel()

	good := &stubMetric{name: "Lint Errors", value: map[string]any{"result": 3}}
	bad := &stubMetric{name: "Coverage", err: errBroken}

	reg, err := metric.NewRegistry(good, bad)
	require.NoError(t, err)

	suite := metric.NewSuite(reg, nil)
	handle := repo.NewLocal("web", "/tmp/web")

	res, err := suite.Measure(context.Background(), handle, "/tmp/web")
	require.NoError(t, err)
	require.Len(t, res.Metrics, 2)

	assert.Equal(t, "web", res.Repository)
	assert.Equal(t, map[string]any{"result": 3}, res.Metrics[0].Value)
	assert.Nil(t, res.Metrics[1].Value)

	lint, ok := res.Lookup("Lint Errors")
	require.True(t, ok)

	structured, ok := lint.Structured()
	require.True(t, ok)
	assert.Equal(t, 3, structured["result"])
}

func TestSuite_MeasureFailsOnCancelledContext(t *testing.T) {
	t.Parallel()

	reg, err := metric.NewRegistry(&stubMetric{name: "A", err: context.Canceled})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := metric.NewSuite(reg, nil).Measure(ctx, repo.NewLocal("web", "."), ".")
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}
