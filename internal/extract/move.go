package extract

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/arma3tool/arma3tool/internal/apperrors"
)

const (
	moveRetries = 3
	moveBackoff = 100 * time.Millisecond
)

// moveToCache relocates each relFiles entry from stageDir into destRoot,
// preserving relative structure, making up to moveRetries attempts per file
// with moveBackoff between them. It returns the final cache path for each
// input file in order.
func (p *Pool) moveToCache(stageDir, destRoot string, relFiles []string) ([]string, error) {
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIoError, "extract.moveToCache", err).WithPath(destRoot)
	}
	out := make([]string, len(relFiles))
	for i, rel := range relFiles {
		src := filepath.Join(stageDir, filepath.FromSlash(rel))
		dst := filepath.Join(destRoot, filepath.FromSlash(rel))
		if err := moveFileWithRetry(src, dst); err != nil {
			return nil, apperrors.Wrap(apperrors.KindIoError, "extract.moveToCache", err).WithPath(rel)
		}
		out[i] = dst
	}
	return out, nil
}

func moveFileWithRetry(src, dst string) error {
	var lastErr error
	for attempt := 0; attempt < moveRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(moveBackoff)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			lastErr = err
			continue
		}
		if err := moveFile(src, dst); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	// Any rename failure (os.Rename reports them all as *os.LinkError,
	// cross-device EXDEV included): fall back to copy-then-remove.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
