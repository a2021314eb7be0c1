package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usePath(t *testing.T) string {
	t.Helper()
	old := configPath
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	SetPath(path)
	t.Cleanup(func() {
		configPath = old
		currentConfig = nil
	})
	return path
}

func TestConfigLoadCreatesDefault(t *testing.T) {
	path := usePath(t)

	require.NoError(t, ConfigLoad())
	assert.FileExists(t, path)
	assert.Equal(t, Default(), ConfigGet())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "max_history: 50")
}

func TestConfigRoundTrip(t *testing.T) {
	usePath(t)
	cfg := Default()
	cfg.Database.Type = "badger"
	cfg.Colors.QuestionBackground = "#112233"
	cfg.Generator.Timeout = 5 * time.Second
	require.NoError(t, ConfigSave(cfg))

	require.NoError(t, ConfigLoad())
	assert.Equal(t, cfg, ConfigGet())
}

func TestConfigLoadFillsMissingKeys(t *testing.T) {
	path := usePath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("editor:\n  max_history: 10\n"), 0644))

	require.NoError(t, ConfigLoad())
	cfg := ConfigGet()
	assert.Equal(t, 10, cfg.Editor.MaxHistory)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 300.0, cfg.Editor.HorizontalSpacing)
}

func TestConfigLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"driver": "database:\n  type: mongo\n",
		"color":  "colors:\n  answer_border: green\n",
		"level":  "logs:\n  level: loud\n",
		"syntax": "editor: [",
	} {
		t.Run(name, func(t *testing.T) {
			path := usePath(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			assert.Error(t, ConfigLoad())
		})
	}
}
