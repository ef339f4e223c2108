package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	t.Run("MissingFileIsSkipped", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
	})

	t.Run("MalformedFileIsReported", func(t *testing.T) {
		path := filepath.Join(dir, "broken.env")
		require.NoError(t, os.WriteFile(path, []byte("NOT-A-VARIABLE\n"), 0o600))

		err := LoadDotEnv(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("DirectoryIsReported", func(t *testing.T) {
		assert.Error(t, LoadDotEnv(dir))
	})

	t.Run("LoadsVariables", func(t *testing.T) {
		const key = "BOOKBRIDGE_DOTENV_TEST"
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() { os.Unsetenv(key) })

		path := filepath.Join(dir, "good.env")
		require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "from-file", os.Getenv(key))
	})
}
