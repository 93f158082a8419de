package pkgversion_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/pkgversion"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o600))

	return dir
}

func TestMeasure_FindsDependency(t *testing.T) {
	t.Parallel()

	dir := writeManifest(t, `{"dependencies":{"vue":"^3.14.1"}}`)
	m := pkgversion.New("Framework Version", "vue")

	got, err := m.Measure(context.Background(), metric.Target{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "^3.14.1", got)
}

func TestMeasure_FallsBackToDevDependencies(t *testing.T) {
	t.Parallel()

	dir := writeManifest(t, `{"devDependencies":{"typescript":"~5.4.0"}}`)

	got, err := pkgversion.New("TypeScript Version", "typescript").Measure(context.Background(), metric.Target{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "~5.4.0", got)
}

func TestMeasure_MissingDependency(t *testing.T) {
	t.Parallel()

	dir := writeManifest(t, `{"dependencies":{}}`)

	_, err := pkgversion.New("React Version", "react").Measure(context.Background(), metric.Target{Dir: dir})
	require.ErrorIs(t, err, pkgversion.ErrDependencyNotFound)
}

func TestInfoAndSchema(t *testing.T) {
	t.Parallel()

	m := pkgversion.New("Framework Version", "vue")

	assert.Equal(t, "Framework Version", m.Info().Name)
	assert.Equal(t, "float", m.Schema()["result"].Type)
}
