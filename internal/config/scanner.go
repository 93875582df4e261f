package config

import "encoding/json"

// ScannerConfig controls the parse worker pool (internal/parse). It is the
// one configuration surface accepted in three interchangeable formats, so
// every field carries yaml, json, and toml tags.
type ScannerConfig struct {
	Threads         int      `yaml:"threads" json:"threads" toml:"threads"`
	TimeoutSeconds  int      `yaml:"timeout_seconds" json:"timeout_seconds" toml:"timeout_seconds"`
	MaxFailures     int      `yaml:"max_failures" json:"max_failures" toml:"max_failures"`
	Extensions      []string `yaml:"extensions" json:"extensions" toml:"extensions"`
	DiagnosticMode  bool     `yaml:"diagnostic_mode" json:"diagnostic_mode" toml:"diagnostic_mode"`
	ShowProgress    bool     `yaml:"show_progress" json:"show_progress" toml:"show_progress"`
	IgnoreList      []string `yaml:"ignore_list" json:"ignore_list" toml:"ignore_list"`
	IncludeNotFound bool     `yaml:"include_not_found" json:"include_not_found" toml:"include_not_found"`
}

// DefaultScannerConfig returns scanner defaults, independent of runtime
// core count so config loading stays deterministic; callers resolve 0 to
// runtime.NumCPU() themselves.
func DefaultScannerConfig() *ScannerConfig {
	return &ScannerConfig{
		Threads:        0,
		TimeoutSeconds: 30,
		MaxFailures:    50,
		Extensions:     []string{"hpp", "cpp"},
		DiagnosticMode: false,
		ShowProgress:   false,
	}
}

func jsonUnmarshalScanner(data []byte, sc *ScannerConfig) error {
	return json.Unmarshal(data, sc)
}
