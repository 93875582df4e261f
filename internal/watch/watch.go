// Package watch triggers a rebuild callback when the configured game-data or
// mission directories change on disk, adapted from the debounced fsnotify
// loop the teacher uses to watch its own rule files for edits.
package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arma3tool/arma3tool/internal/logging"
)

// DirWatcher watches a set of directories and invokes a callback, debounced,
// once events on them have settled.
type DirWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dirs        []string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onChange    func(ctx context.Context)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewDirWatcher builds a watcher over dirs. onChange is invoked (never
// concurrently with itself) once events on any watched directory have gone
// quiet for the debounce window.
func NewDirWatcher(dirs []string, onChange func(ctx context.Context)) (*DirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DirWatcher{
		watcher:     fw,
		dirs:        dirs,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching in the background. It is non-blocking; directories
// that don't yet exist are skipped with a warning rather than failing the
// whole watcher, since a mission directory may be created after startup.
func (dw *DirWatcher) Start(ctx context.Context) error {
	dw.mu.Lock()
	if dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = true
	dw.mu.Unlock()

	log := logging.Get(logging.CategoryWatch)
	for _, dir := range dw.dirs {
		if _, err := os.Stat(dir); err != nil {
			log.Warn("watch: skipping missing directory %s: %v", dir, err)
			continue
		}
		if err := dw.watcher.Add(dir); err != nil {
			log.Warn("watch: failed to watch %s: %v", dir, err)
			continue
		}
		log.Info("watch: watching %s", dir)
	}

	go dw.run(ctx)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
func (dw *DirWatcher) Stop() {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.stopCh)
	<-dw.doneCh
	dw.watcher.Close()
}

func (dw *DirWatcher) run(ctx context.Context) {
	defer close(dw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	log := logging.Get(logging.CategoryWatch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-dw.stopCh:
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.mu.Lock()
			dw.debounceMap[event.Name] = time.Now()
			dw.mu.Unlock()
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watch: fsnotify error: %v", err)
		case <-ticker.C:
			dw.fireSettled(ctx)
		}
	}
}

func (dw *DirWatcher) fireSettled(ctx context.Context) {
	dw.mu.Lock()
	now := time.Now()
	settled := false
	for path, t := range dw.debounceMap {
		if now.Sub(t) >= dw.debounceDur {
			delete(dw.debounceMap, path)
			settled = true
		}
	}
	dw.mu.Unlock()

	if settled && dw.onChange != nil {
		dw.onChange(ctx)
	}
}
