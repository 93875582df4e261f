package parse

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/logging"
	"github.com/arma3tool/arma3tool/internal/parse/diag"
)

// Pool scans a file set with a bounded goroutine pool: a fixed set of
// workers fed from a jobs channel, joined with a WaitGroup.
type Pool struct {
	parser       ConfigParser
	classifier   *diag.Classifier
	cfg          config.ScannerConfig
	failureCount atomic.Int64
	stopped      atomic.Bool
	done         atomic.Int64
	progress     func(done, total int, path string)
}

// NewPool builds a scan pool around parser, configured by cfg.
func NewPool(parser ConfigParser, cfg config.ScannerConfig) *Pool {
	return &Pool{parser: parser, classifier: diag.NewClassifier(cfg.IgnoreList), cfg: cfg}
}

// SetProgress installs a callback invoked after each file finishes, letting
// a caller (e.g. a CLI with cfg.ShowProgress set) drive a live display
// without the pool itself knowing how progress is rendered.
func (p *Pool) SetProgress(fn func(done, total int, path string)) {
	p.progress = fn
}

// Scan parses every path, subject to cfg.MaxFailures: once exactly that many
// hard failures have been recorded, workers that haven't yet started a file
// skip it; workers already in flight are allowed to finish.
func (p *Pool) Scan(ctx context.Context, paths []string) (ScannerResult, error) {
	log := logging.Get(logging.CategoryParse)
	threads := p.cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	jobs := make(chan string)
	resultsCh := make(chan FileResult, len(paths))
	var wg sync.WaitGroup

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if p.stopped.Load() {
					continue
				}
				res := p.scanOne(ctx, path)
				if res.Hard != nil {
					p.tryRecordFailure()
				}
				if p.progress != nil {
					p.progress(int(p.done.Add(1)), len(paths), path)
				}
				resultsCh <- res
			}
		}()
	}

	go func() {
		for _, path := range paths {
			jobs <- path
		}
		close(jobs)
	}()

	wg.Wait()
	close(resultsCh)

	var files []FileResult
	for r := range resultsCh {
		files = append(files, r)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	stoppedEarly := p.cfg.MaxFailures > 0 && p.failureCount.Load() >= int64(p.cfg.MaxFailures)
	if stoppedEarly {
		log.Warn("scan stopped early after %d hard failures (max_failures=%d)", p.failureCount.Load(), p.cfg.MaxFailures)
	}
	return ScannerResult{Files: files, StoppedEarly: stoppedEarly, HardFailureCount: int(p.failureCount.Load())}, nil
}

// tryRecordFailure increments the shared counter up to cfg.MaxFailures and
// flips the stop flag the instant the cap is reached, so the pool records
// at most MaxFailures hard-error entries.
func (p *Pool) tryRecordFailure() {
	if p.cfg.MaxFailures <= 0 {
		p.failureCount.Add(1)
		return
	}
	for {
		cur := p.failureCount.Load()
		if cur >= int64(p.cfg.MaxFailures) {
			return
		}
		if p.failureCount.CompareAndSwap(cur, cur+1) {
			if cur+1 >= int64(p.cfg.MaxFailures) {
				p.stopped.Store(true)
			}
			return
		}
	}
}

// ScanSingle parses one file, for callers that don't need the pool (e.g. a
// CLI "parse this one file" debug path).
func (p *Pool) ScanSingle(ctx context.Context, path string) FileResult {
	return p.scanOne(ctx, path)
}

func (p *Pool) scanOne(ctx context.Context, path string) FileResult {
	log := logging.Get(logging.CategoryParse)
	resultCh := make(chan FileResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn("parser panicked on %s: %v", path, r)
				resultCh <- FileResult{
					Path: path, Success: true,
					Warnings: []diag.Diagnostic{{Code: diag.CodeParserPanicked,
						Message: fmt.Sprintf("panic: %v", r), Severity: diag.SeverityWarning, File: path}},
				}
			}
		}()
		pr, err := p.parser.ParseFile(ctx, path)
		resultCh <- p.classify(path, pr, err)
	}()

	if p.cfg.TimeoutSeconds <= 0 {
		return <-resultCh
	}
	select {
	case res := <-resultCh:
		return res
	case <-time.After(time.Duration(p.cfg.TimeoutSeconds) * time.Second):
		log.Warn("parse timed out on %s after %ds", path, p.cfg.TimeoutSeconds)
		warnings := []diag.Diagnostic{{Code: diag.CodeTimeout,
			Message: "parse exceeded timeout_seconds", Severity: diag.SeverityWarning, File: path}}
		if p.cfg.DiagnosticMode {
			return FileResult{Path: path, Success: true, Warnings: warnings}
		}
		return FileResult{Path: path, Success: true}
	}
}

func (p *Pool) classify(path string, pr ParseResult, err error) FileResult {
	diags := pr.Diagnostics
	if err != nil {
		diags = append(diags, diag.Diagnostic{Code: "parse_error", Message: err.Error(),
			Severity: diag.SeverityError, File: path})
	}
	warnings, hard := p.classifier.Classify(diags)

	res := FileResult{Path: path, Success: hard == nil, Hard: hard, Classes: pr.Classes}
	if p.cfg.DiagnosticMode {
		res.Warnings = warnings
	}
	return res
}
