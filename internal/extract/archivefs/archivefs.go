// Package archivefs provides the default ArchiveExtractor: it treats a
// directory tree on disk as a pre-extracted "archive" (a staged game-data or
// mission folder, as produced by an upstream unpacking step) and copies the
// subset of files matching the caller's extension filter into the
// extraction pool's temp staging directory. Real PBO unpacking is left to an
// injected extractor; this package only knows how to catalog and stage an
// already-exploded tree, the same split the reference extractor draws
// between "extract_to_temp" and "catalog_files".
package archivefs

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/pathutil"
)

// DirExtractor stages files from a directory tree into a destination,
// filtering by extension.
type DirExtractor struct{}

// New returns a directory-tree ArchiveExtractor.
func New() *DirExtractor {
	return &DirExtractor{}
}

// Extract walks archivePath (which must be a directory) and copies every
// file matching extensions into destDir, preserving relative structure. It
// returns the normalized relative path of each file copied, sorted for
// determinism.
func (d *DirExtractor) Extract(ctx context.Context, archivePath, destDir string, extensions []string) ([]string, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIoError, "archivefs.Extract", err).WithPath(archivePath)
	}
	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(archivePath))
		switch ext {
		case ".pbo", ".xbo", ".ifa":
			return nil, apperrors.New(apperrors.KindUnsupportedOperation, "archivefs.Extract",
				"binary archive decoding requires an injected codec; archivefs only stages pre-extracted directory trees").WithPath(archivePath)
		default:
			return nil, apperrors.New(apperrors.KindInvalidFormat, "archivefs.Extract",
				"unsupported archive format "+ext).WithPath(archivePath)
		}
	}

	allow := make(map[string]bool, len(extensions))
	for _, e := range pathutil.ExtensionSet(extensions) {
		allow[e] = true
	}

	var rel []string
	err = filepath.WalkDir(archivePath, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if len(allow) > 0 {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
			if !allow[ext] {
				return nil
			}
		}
		relPath, err := filepath.Rel(archivePath, p)
		if err != nil {
			return err
		}
		normalized := pathutil.Normalize(relPath)
		target := filepath.Join(destDir, filepath.FromSlash(normalized))
		if err := copyFile(p, target); err != nil {
			return err
		}
		rel = append(rel, normalized)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIoError, "archivefs.Extract", err).WithPath(archivePath)
	}
	sort.Strings(rel)
	return rel, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
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
	return out.Close()
}
