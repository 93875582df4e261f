package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/arma3tool/arma3tool/internal/extract/archivefs"
	"github.com/arma3tool/arma3tool/internal/store"
	"github.com/stretchr/testify/require"
)

// alwaysFailExtractor counts how many times Extract was invoked, so a test
// can assert the failure-ledger gate in processOne short-circuits before the
// unpacker is ever called again.
type alwaysFailExtractor struct {
	calls atomic.Int64
}

func (e *alwaysFailExtractor) Extract(ctx context.Context, archivePath, destDir string, extensions []string) ([]string, error) {
	e.calls.Add(1)
	return nil, errors.New("simulated unpacker failure")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "extract_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestExtractStagesAndCaches(t *testing.T) {
	db := openTestDB(t)
	srcDir := filepath.Join(t.TempDir(), "src")
	writeFile(t, filepath.Join(srcDir, "config.cpp"), "class Base {};")
	writeFile(t, filepath.Join(srcDir, "ignored.bin"), "binary")

	cacheRoot := t.TempDir()
	pool := NewPool(db, archivefs.New(), 2, 5*time.Second)

	results, err := pool.Extract(context.Background(), []Request{{Path: srcDir, Kind: store.ArchiveKindGameData}},
		cacheRoot, []string{"cpp", "hpp"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Failed)
	require.ElementsMatch(t, []string{"config.cpp"}, results[0].RelFiles)

	cached := filepath.Join(cacheRoot, "gamedata", "src", "config.cpp")
	_, statErr := os.Stat(cached)
	require.NoError(t, statErr)
}

func TestExtractSkipsUnchangedFingerprint(t *testing.T) {
	db := openTestDB(t)
	srcDir := filepath.Join(t.TempDir(), "src")
	writeFile(t, filepath.Join(srcDir, "config.cpp"), "class Base {};")
	cacheRoot := t.TempDir()
	pool := NewPool(db, archivefs.New(), 1, 5*time.Second)
	req := []Request{{Path: srcDir, Kind: store.ArchiveKindGameData}}

	first, err := pool.Extract(context.Background(), req, cacheRoot, []string{"cpp"}, false)
	require.NoError(t, err)
	require.False(t, first[0].Skipped)

	second, err := pool.Extract(context.Background(), req, cacheRoot, []string{"cpp"}, false)
	require.NoError(t, err)
	require.True(t, second[0].Skipped)
	require.ElementsMatch(t, []string{"config.cpp"}, second[0].RelFiles)
}

func TestExtractOneFailureDoesNotAbortBatch(t *testing.T) {
	db := openTestDB(t)
	goodDir := filepath.Join(t.TempDir(), "good")
	writeFile(t, filepath.Join(goodDir, "config.cpp"), "class Base {};")
	missingDir := filepath.Join(t.TempDir(), "does-not-exist")

	pool := NewPool(db, archivefs.New(), 2, 5*time.Second)
	results, err := pool.Extract(context.Background(), []Request{
		{Path: goodDir, Kind: store.ArchiveKindGameData},
		{Path: missingDir, Kind: store.ArchiveKindGameData},
	}, t.TempDir(), []string{"cpp"}, false)
	require.NoError(t, err)
	require.False(t, results[0].Failed)
	require.True(t, results[1].Failed)

	failures, err := db.ListFailedExtractions()
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, missingDir, failures[0].ArchivePath)
}

// TestExtractSkipsPriorFailureWithoutForce exercises scenario S6: once an
// archive has a failure-ledger entry, a subsequent non-forced run must skip
// it without re-invoking the unpacker, per spec.md §4.1.
func TestExtractSkipsPriorFailureWithoutForce(t *testing.T) {
	db := openTestDB(t)
	srcDir := filepath.Join(t.TempDir(), "src")
	writeFile(t, filepath.Join(srcDir, "config.cpp"), "class Base {};")

	extractor := &alwaysFailExtractor{}
	pool := NewPool(db, extractor, 1, 5*time.Second)
	req := []Request{{Path: srcDir, Kind: store.ArchiveKindGameData}}

	first, err := pool.Extract(context.Background(), req, t.TempDir(), []string{"cpp"}, false)
	require.NoError(t, err)
	require.True(t, first[0].Failed)
	require.EqualValues(t, 1, extractor.calls.Load())

	failures, err := db.ListFailedExtractions()
	require.NoError(t, err)
	require.Len(t, failures, 1)

	second, err := pool.Extract(context.Background(), req, t.TempDir(), []string{"cpp"}, false)
	require.NoError(t, err)
	require.True(t, second[0].Failed)
	require.Contains(t, second[0].Err.Error(), "prior failure recorded")
	require.EqualValues(t, 1, extractor.calls.Load(), "the unpacker must not be re-invoked for a ledgered failure")

	// force=true bypasses the ledger gate and retries the unpacker.
	forced, err := pool.Extract(context.Background(), req, t.TempDir(), []string{"cpp"}, true)
	require.NoError(t, err)
	require.True(t, forced[0].Failed)
	require.EqualValues(t, 2, extractor.calls.Load())
}
