package plugins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/plugins"
)

func TestBuild_PreservesOrder(t *testing.T) {
	t.Parallel()

	registry, err := plugins.Build([]config.MetricConfig{
		{Name: "React Version", Kind: "package-version", Package: "react"},
		{Name: "Lint Errors", Kind: "command", Command: []string{"npx", "eslint"}, Schema: map[string]string{"count": "integer"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"React Version", "Lint Errors"}, registry.Names())

	lint, ok := registry.Lookup("Lint Errors")
	require.True(t, ok)
	assert.Equal(t, metric.Schema{"count": {Type: "integer"}}, lint.Schema())
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	_, err := plugins.Build([]config.MetricConfig{{Name: "x", Kind: "telepathy"}})
	require.ErrorIs(t, err, plugins.ErrUnknownKind)

	_, err = plugins.Build([]config.MetricConfig{{Name: "x", Kind: "package-version"}})
	require.ErrorIs(t, err, plugins.ErrMissingPackage)

	_, err = plugins.Build([]config.MetricConfig{
		{Name: "dup", Kind: "package-version", Package: "a"},
		{Name: "dup", Kind: "package-version", Package: "b"},
	})
	require.ErrorIs(t, err, metric.ErrDuplicateMetric)
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	registry, err := plugins.Build(nil)
	require.NoError(t, err)
	assert.Zero(t, registry.Len())
}
