package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arma3tool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
extraction:
  threads: 8
  game_data_dirs: ["/data/core"]
store:
  path: /tmp/custom.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Extraction.Threads)
	require.Equal(t, []string{"/data/core"}, cfg.Extraction.GameDataDirs)
	require.Equal(t, "/tmp/custom.db", cfg.Store.Path)
	// untouched fields keep their defaults
	require.Equal(t, Default().Extraction.TimeoutSeconds, cfg.Extraction.TimeoutSeconds)
}

func TestLoadScannerDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "scanner.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("threads: 2\nmax_failures: 10\n"), 0o644))
	sc, err := LoadScanner(yamlPath)
	require.NoError(t, err)
	require.Equal(t, 2, sc.Threads)
	require.Equal(t, 10, sc.MaxFailures)

	jsonPath := filepath.Join(dir, "scanner.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"threads": 3, "diagnostic_mode": true}`), 0o644))
	sc, err = LoadScanner(jsonPath)
	require.NoError(t, err)
	require.Equal(t, 3, sc.Threads)
	require.True(t, sc.DiagnosticMode)

	tomlPath := filepath.Join(dir, "scanner.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("threads = 4\nshow_progress = true\n"), 0o644))
	sc, err = LoadScanner(tomlPath)
	require.NoError(t, err)
	require.Equal(t, 4, sc.Threads)
	require.True(t, sc.ShowProgress)
}

func TestLoadScannerRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.ini")
	require.NoError(t, os.WriteFile(path, []byte("threads=1"), 0o644))

	_, err := LoadScanner(path)
	require.Error(t, err)
}
