package parse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/parse/diag"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubParser struct {
	byPath map[string]func(ctx context.Context) (ParseResult, error)
}

func (s *stubParser) ParseFile(ctx context.Context, path string) (ParseResult, error) {
	if fn, ok := s.byPath[path]; ok {
		return fn(ctx)
	}
	return ParseResult{Classes: []ParsedClass{{Name: path}}}, nil
}

func TestScanHappyPath(t *testing.T) {
	parser := &stubParser{byPath: map[string]func(ctx context.Context) (ParseResult, error){}}
	pool := NewPool(parser, config.ScannerConfig{Threads: 2, TimeoutSeconds: 1})
	result, err := pool.Scan(context.Background(), []string{"a.cpp", "b.cpp"})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	for _, f := range result.Files {
		require.True(t, f.Success)
	}
}

func TestScanPanicRecovery(t *testing.T) {
	parser := &stubParser{byPath: map[string]func(ctx context.Context) (ParseResult, error){
		"bad.cpp": func(ctx context.Context) (ParseResult, error) { panic("boom") },
	}}
	pool := NewPool(parser, config.ScannerConfig{Threads: 1, TimeoutSeconds: 1, DiagnosticMode: true})
	result, err := pool.Scan(context.Background(), []string{"bad.cpp"})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.True(t, result.Files[0].Success, "a panic is a warning, not a hard failure")
	require.Equal(t, diag.CodeParserPanicked, result.Files[0].Warnings[0].Code)
}

func TestScanTimeout(t *testing.T) {
	parser := &stubParser{byPath: map[string]func(ctx context.Context) (ParseResult, error){
		"slow.cpp": func(ctx context.Context) (ParseResult, error) {
			time.Sleep(1100 * time.Millisecond)
			return ParseResult{Classes: []ParsedClass{{Name: "TooLate"}}}, nil
		},
	}}
	// A 1s timeout against a 1.1s parse must yield an empty, successful
	// result rather than a hard failure, and must not block on the slow
	// goroutine finishing.
	pool := NewPool(parser, config.ScannerConfig{Threads: 1, TimeoutSeconds: 1})
	res := pool.ScanSingle(context.Background(), "slow.cpp")
	require.True(t, res.Success)
	require.Empty(t, res.Classes)
}

func TestScanReportsProgressForEveryFile(t *testing.T) {
	parser := &stubParser{byPath: map[string]func(ctx context.Context) (ParseResult, error){}}
	pool := NewPool(parser, config.ScannerConfig{Threads: 2, TimeoutSeconds: 1, ShowProgress: true})

	var mu sync.Mutex
	seen := make(map[string]bool)
	var lastDone, lastTotal int
	pool.SetProgress(func(done, total int, path string) {
		mu.Lock()
		defer mu.Unlock()
		seen[path] = true
		lastDone, lastTotal = done, total
	})

	paths := []string{"a.cpp", "b.cpp", "c.cpp"}
	_, err := pool.Scan(context.Background(), paths)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range paths {
		require.True(t, seen[p])
	}
	require.Equal(t, len(paths), lastDone)
	require.Equal(t, len(paths), lastTotal)
}

func TestMaxFailuresStopsEarly(t *testing.T) {
	parser := &stubParser{byPath: map[string]func(ctx context.Context) (ParseResult, error){}}
	for _, name := range []string{"f1.cpp", "f2.cpp", "f3.cpp"} {
		parser.byPath[name] = func(ctx context.Context) (ParseResult, error) {
			return ParseResult{}, errors.New("syntax error")
		}
	}
	pool := NewPool(parser, config.ScannerConfig{Threads: 1, TimeoutSeconds: 1, MaxFailures: 2})
	result, err := pool.Scan(context.Background(), []string{"f1.cpp", "f2.cpp", "f3.cpp"})
	require.NoError(t, err)
	require.LessOrEqual(t, result.HardFailureCount, 2)
	require.True(t, result.StoppedEarly)
}
