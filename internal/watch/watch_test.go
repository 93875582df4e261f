package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirWatcherFiresOnChange(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int64
	dw, err := NewDirWatcher([]string{dir}, func(ctx context.Context) {
		calls.Add(1)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, dw.Start(ctx))
	defer dw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.hpp"), []byte("class X {};"), 0o644))

	require.Eventually(t, func() bool {
		return calls.Load() > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDirWatcherSkipsMissingDirectory(t *testing.T) {
	dw, err := NewDirWatcher([]string{filepath.Join(t.TempDir(), "does-not-exist")}, func(ctx context.Context) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, dw.Start(ctx))
	dw.Stop()
}
