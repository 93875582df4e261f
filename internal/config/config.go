// Package config loads the application's YAML configuration, the JSON
// item-filter configuration used by the exporter, and the scanner
// configuration accepted in YAML, JSON, or TOML form.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arma3tool/arma3tool/internal/apperrors"
)

// LoggingConfig controls the internal/logging package.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// ExtractionConfig controls the extraction worker pool (internal/extract).
type ExtractionConfig struct {
	Threads          int      `yaml:"threads"`
	TimeoutSeconds   int      `yaml:"timeout_seconds"`
	GameDataDirs     []string `yaml:"game_data_dirs"`
	GameDataExt      []string `yaml:"game_data_extensions"`
	MissionDirs      []string `yaml:"mission_dirs"`
	MissionExt       []string `yaml:"mission_extensions"`
	CacheDir         string   `yaml:"cache_dir"`
	Force            bool     `yaml:"force"`
}

// StoreConfig controls the database connection.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Config is the top-level application configuration, loaded from a single
// YAML file the way the teacher's own config package loads one.
type Config struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Store     StoreConfig      `yaml:"store"`
}

// Default returns a fully populated Config, mirroring the teacher's
// DefaultConfig() factory-function convention.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		Extraction: ExtractionConfig{
			Threads:        4,
			TimeoutSeconds: 60,
			GameDataExt:    []string{"hpp", "cpp", "sqf"},
			MissionExt:     []string{"hpp", "cpp", "sqf", "sqm"},
			CacheDir:       ".arma3tool/cache",
		},
		Store: StoreConfig{
			Path: ".arma3tool/arma3.db",
		},
	}
}

// Load reads a YAML config file, applying defaults for anything absent.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, apperrors.Wrap(apperrors.KindIoError, "config.Load", err).WithPath(path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidFormat, "config.Load", err).WithPath(path)
	}
	return cfg, nil
}

// LoadScanner reads a ScannerConfig from a YAML, JSON, or TOML file,
// dispatching on the file extension.
func LoadScanner(path string) (*ScannerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIoError, "config.LoadScanner", err).WithPath(path)
	}
	sc := DefaultScannerConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, sc); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidFormat, "config.LoadScanner", err).WithPath(path)
		}
	case ".json":
		if err := jsonUnmarshalScanner(data, sc); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidFormat, "config.LoadScanner", err).WithPath(path)
		}
	case ".toml":
		if err := toml.Unmarshal(data, sc); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidFormat, "config.LoadScanner", err).WithPath(path)
		}
	default:
		return nil, apperrors.New(apperrors.KindUnsupportedOperation, "config.LoadScanner",
			fmt.Sprintf("unsupported scanner config extension %q", filepath.Ext(path)))
	}
	return sc, nil
}
