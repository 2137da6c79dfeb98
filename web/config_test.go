package web

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Overrides Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vizfix.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
host = "0.0.0.0"
port = 9999
oracle_url = "http://oracle:8000"
debounce_ms = 250
max_fix_attempts = 3
`), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9999", cfg.Address())
		assert.Equal(t, "http://oracle:8000", cfg.OracleURL)
		assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
		assert.Equal(t, 3, cfg.MaxFixAttempts)
		// Untouched keys keep their defaults.
		assert.Equal(t, 30*time.Second, cfg.FixTimeout())
		assert.Equal(t, 1200, cfg.ExportWidth)
	})

	t.Run("Missing File Errors", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}
