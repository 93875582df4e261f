// Package parse drives the config-file scanning stage: a bounded worker pool
// hands each source file to an injected ConfigParser, isolating panics and
// per-file timeouts so one malformed file never takes down a scan, and
// classifies each file's diagnostics into warnings versus hard failures via
// internal/parse/diag.
package parse

import (
	"context"

	"github.com/arma3tool/arma3tool/internal/parse/diag"
	"github.com/arma3tool/arma3tool/internal/store"
)

// ConfigParser parses one config file into its class definitions plus any
// diagnostics raised along the way (missing includes, unresolved
// preprocessor state, syntax errors). A non-nil error indicates the file
// could not be read or parsed at all, as opposed to being parsed with
// diagnostics.
type ConfigParser interface {
	ParseFile(ctx context.Context, path string) (ParseResult, error)
}

// ParsedClass is one class definition as read off the page, before it has
// been resolved into a store.Class (source_file_index is assigned by the
// caller once the file's position in the archive's file list is known).
type ParsedClass struct {
	Name                 string
	ParentName           string
	ContainerClass       string
	IsForwardDeclaration bool
	Properties           map[string]store.PropertyValue
}

// ParseResult is what a ConfigParser produces for one file.
type ParseResult struct {
	Classes     []ParsedClass
	Diagnostics []diag.Diagnostic
}

// FileResult is one file's outcome after diagnostic classification.
type FileResult struct {
	Path     string
	Success  bool
	Hard     *diag.Diagnostic
	Warnings []diag.Diagnostic
	Classes  []ParsedClass
}

// ScannerResult is the outcome of scanning an entire file set.
type ScannerResult struct {
	Files            []FileResult
	StoppedEarly     bool
	HardFailureCount int
}
