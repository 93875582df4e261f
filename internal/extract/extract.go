// Package extract drives archive extraction into the on-disk cache: for each
// archive it consults the fingerprint store to decide whether re-extraction
// is needed, stages the result in a temp directory via an injected
// ArchiveExtractor, then atomically moves the staged files into the cache
// tree and records the outcome (success or a failure-ledger entry). A bounded
// worker pool processes archives concurrently, recovering from a panicking
// extractor the same way the worker pool elsewhere in this codebase recovers
// from a panicking goroutine.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/logging"
	"github.com/arma3tool/arma3tool/internal/pathutil"
	"github.com/arma3tool/arma3tool/internal/store"
)

// Failure-ledger kinds, distinct from the generic apperrors.Kind taxonomy:
// these classify *why an archive's extraction attempt failed*, for the
// failed_extractions table specifically.
const (
	KindUnpackerError = "unpacker_error"
	KindIoError       = "io_error"
	KindTimeoutError  = "timeout_error"
	KindPostProcess   = "post_process_error"
)

// ArchiveExtractor stages one archive's matching files into destDir and
// returns the paths it wrote, relative to destDir, normalized via
// pathutil.Normalize. Implementations should respect ctx cancellation.
type ArchiveExtractor interface {
	Extract(ctx context.Context, archivePath, destDir string, extensions []string) ([]string, error)
}

// Request is one archive to consider for extraction.
type Request struct {
	Path string
	Kind store.ArchiveKind
}

// Result is the outcome for one archive.
type Result struct {
	Path     string
	Kind     store.ArchiveKind
	RelFiles []string
	Skipped  bool // fingerprint unchanged, nothing re-extracted
	Failed   bool
	Err      error
}

// Pool extracts a batch of archives with bounded concurrency.
type Pool struct {
	db        *store.DB
	extractor ArchiveExtractor
	threads   int
	timeout   time.Duration
}

// NewPool builds a Pool. threads <= 0 falls back to 4 concurrent workers;
// timeout <= 0 means no per-archive timeout.
func NewPool(db *store.DB, extractor ArchiveExtractor, threads int, timeout time.Duration) *Pool {
	return &Pool{db: db, extractor: extractor, threads: threads, timeout: timeout}
}

// cacheSubdir maps a store.ArchiveKind onto the cache tree's top-level
// directory name, which intentionally differs from the enum's own storage
// value ("game_data" vs "gamedata").
func cacheSubdir(kind store.ArchiveKind) string {
	if kind == store.ArchiveKindMission {
		return "missions"
	}
	return "gamedata"
}

// Extract processes every request, skipping archives whose fingerprint is
// unchanged (unless force is set) and recording a failure-ledger entry for
// any archive that cannot be extracted or staged into the cache. One
// archive's failure never aborts the batch.
func (p *Pool) Extract(ctx context.Context, requests []Request, cacheRoot string, extensions []string, force bool) ([]Result, error) {
	threads := p.threads
	if threads <= 0 {
		threads = 4
	}
	log := logging.Get(logging.CategoryExtract)
	results := make([]Result, len(requests))
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, req Request) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{Path: req.Path, Kind: req.Kind, Failed: true,
						Err: fmt.Errorf("extract worker panicked: %v", r)}
					log.Error("panic extracting %s: %v", req.Path, r)
				}
			}()
			results[i] = p.processOne(ctx, req, cacheRoot, extensions, force)
		}(i, req)
	}
	wg.Wait()
	return results, nil
}

func (p *Pool) processOne(ctx context.Context, req Request, cacheRoot string, extensions []string, force bool) Result {
	log := logging.Get(logging.CategoryExtract)
	result := Result{Path: req.Path, Kind: req.Kind}

	info, err := os.Stat(req.Path)
	if err != nil {
		p.recordFailure(req, KindIoError, err.Error())
		result.Failed, result.Err = true, apperrors.Wrap(apperrors.KindIoError, "extract.processOne", err).WithPath(req.Path)
		return result
	}

	if !force {
		if failure, err := p.db.GetFailedExtraction(req.Path); err == nil && failure != nil {
			log.Warn("skipping %s: failure-ledger entry from %s (%s: %s)",
				req.Path, failure.Timestamp.Format(time.RFC3339), failure.ErrorKind, failure.Message)
			result.Failed, result.Err = true, apperrors.New(apperrors.KindUnknown, "extract.processOne",
				fmt.Sprintf("skipped: prior failure recorded %s (%s): %s",
					failure.Timestamp.Format(time.RFC3339), failure.ErrorKind, failure.Message)).WithPath(req.Path)
			return result
		}

		existing, err := p.db.GetFingerprint(req.Path)
		if err == nil && !store.NeedsExtraction(existing, info.Size(), info.ModTime().Unix(), extensions) {
			result.Skipped = true
			if archive, err := p.db.GetArchiveByPath(req.Path); err == nil && archive != nil {
				if files, err := p.db.GetExtractedFiles(archive.ID); err == nil {
					for _, f := range files {
						result.RelFiles = append(result.RelFiles, f.RelPath)
					}
				}
			}
			return result
		}
	}

	runCtx := ctx
	cancel := func() {}
	if p.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
	}
	defer cancel()

	relFiles, stageDir, err := p.stage(runCtx, req, extensions)
	if stageDir != "" {
		defer os.RemoveAll(stageDir)
	}
	if err != nil {
		kind := KindUnpackerError
		if apperrors.OfKind(err) == apperrors.KindTimeout {
			kind = KindTimeoutError
		}
		p.recordFailure(req, kind, err.Error())
		result.Failed, result.Err = true, err
		return result
	}

	sort.Strings(relFiles)
	cachePaths, moveErr := p.moveToCache(stageDir, filepath.Join(cacheRoot, cacheSubdir(req.Kind), stem(req.Path)), relFiles)
	if moveErr != nil {
		p.recordFailure(req, KindPostProcess, moveErr.Error())
		result.Failed, result.Err = true, moveErr
		return result
	}

	archiveID, err := p.db.UpsertArchive(store.Archive{
		Path: req.Path, Kind: req.Kind, SizeBytes: info.Size(), ModTime: info.ModTime(),
	})
	if err != nil {
		result.Failed, result.Err = true, err
		return result
	}

	extracted := make([]store.ExtractedFile, len(relFiles))
	for i, rel := range relFiles {
		extracted[i] = store.ExtractedFile{ArchiveID: archiveID, RelPath: rel, CachePath: cachePaths[i], SizeBytes: fileSize(cachePaths[i])}
	}
	if err := p.db.ReplaceExtractedFiles(archiveID, extracted); err != nil {
		result.Failed, result.Err = true, err
		return result
	}
	if err := p.db.PutFingerprint(store.FingerprintRecord{
		ArchivePath: req.Path, Kind: req.Kind, SizeBytes: info.Size(), ModTimeUnix: info.ModTime().Unix(),
		UsedExtensions: extensions, ExtractedAt: time.Now(),
	}); err != nil {
		result.Failed, result.Err = true, err
		return result
	}
	_ = p.db.ClearFailedExtraction(req.Path)

	result.RelFiles = relFiles
	log.Info("extracted %s: %d files", req.Path, len(relFiles))
	return result
}

func (p *Pool) stage(ctx context.Context, req Request, extensions []string) ([]string, string, error) {
	stageDir, err := os.MkdirTemp("", "arma3tool-extract-*")
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindIoError, "extract.stage", err)
	}
	type outcome struct {
		files []string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		files, err := p.extractor.Extract(ctx, req.Path, stageDir, extensions)
		done <- outcome{files, err}
	}()
	select {
	case o := <-done:
		if o.err != nil {
			return nil, stageDir, o.err
		}
		return o.files, stageDir, nil
	case <-ctx.Done():
		return nil, stageDir, apperrors.New(apperrors.KindTimeout, "extract.stage",
			fmt.Sprintf("extraction of %s exceeded its time budget", req.Path)).WithPath(req.Path)
	}
}

func (p *Pool) recordFailure(req Request, kind, message string) {
	log := logging.Get(logging.CategoryExtract)
	if err := p.db.RecordFailedExtraction(store.FailedExtraction{
		ArchivePath: req.Path, Kind: req.Kind, Timestamp: time.Now(), ErrorKind: kind, Message: message,
	}); err != nil {
		log.Error("failed to record failure ledger entry for %s: %v", req.Path, err)
	}
	log.Warn("extraction failed for %s: [%s] %s", req.Path, kind, message)
}

func stem(archivePath string) string {
	base := filepath.Base(archivePath)
	return pathutil.Normalize(base[:len(base)-len(filepath.Ext(base))])
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
