package repo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

func TestName_FromPackageJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"@acme/web"}`), 0o600))

	assert.Equal(t, "@acme/web", repo.Name(dir))
}

func TestName_FallsBackToDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "storefront")
	require.NoError(t, os.Mkdir(dir, 0o750))

	assert.Equal(t, "storefront", repo.Name(dir))
}

func TestPackageName_Unnamed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"version":"1.0.0"}`), 0o600))

	_, err := repo.PackageName(dir)
	require.ErrorIs(t, err, repo.ErrNoPackageName)
}

func TestNewLocal(t *testing.T) {
	t.Parallel()

	handle := repo.NewLocal("web", "/src/web")

	assert.Equal(t, "web", handle.Label)
	assert.Equal(t, repo.DefaultTargetBranch, handle.TargetBranch)
	assert.True(t, handle.IsLocal)
	assert.Empty(t, handle.InstalledGitHash)
	assert.Equal(t, "/src/web", handle.Dir)
}
