// Package watch re-runs a conversion whenever its input file changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write before a change fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for changes and triggers updates.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]*fileState
	mu       sync.RWMutex
	debounce time.Duration
	logger   *zap.Logger
	inflight sync.WaitGroup

	// OnChange runs once per settled change. Calls for the same file never overlap.
	OnChange func(ctx context.Context, path string) error
	// OnError receives watcher errors and OnChange failures.
	OnError func(path string, err error)
}

type fileState struct {
	path         string
	lastModified time.Time
	size         int64
	processing   bool
}

// NewWatcher creates a new file watcher. A debounce <= 0 uses DefaultDebounce.
func NewWatcher(debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]*fileState),
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Watch starts watching a file for changes.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[absPath] = &fileState{
		path:         absPath,
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}
	w.mu.Unlock()

	// Editors often replace files by rename, so watch the parent directory.
	dir := filepath.Dir(absPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	w.logger.Debug("watching", zap.String("path", absPath), zap.String("dir", dir))
	return nil
}

// Run starts the watch loop. Blocks until ctx is cancelled, then stops
// pending timers and waits for any running OnChange to return.
func (w *Watcher) Run(ctx context.Context) error {
	timers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	defer func() {
		timerMu.Lock()
		for _, t := range timers {
			if t.Stop() {
				w.inflight.Done()
			}
		}
		timerMu.Unlock()
		w.inflight.Wait()
		w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.RLock()
			state, isWatched := w.files[absPath]
			w.mu.RUnlock()
			if !isWatched {
				continue
			}

			timerMu.Lock()
			if t, exists := timers[absPath]; exists && t.Stop() {
				w.inflight.Done()
			}
			w.inflight.Add(1)
			timers[absPath] = time.AfterFunc(w.debounce, func() {
				defer w.inflight.Done()
				w.handleChange(ctx, absPath, state)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleChange(ctx context.Context, path string, state *fileState) {
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	w.mu.Lock()
	unchanged := stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()
	if unchanged {
		return
	}

	w.logger.Info("input changed", zap.String("path", path), zap.Int64("size", stat.Size()))
	if w.OnChange == nil {
		return
	}
	if err := w.OnChange(ctx, path); err != nil {
		w.logger.Warn("change handler failed", zap.String("path", path), zap.Error(err))
		if w.OnError != nil {
			w.OnError(path, err)
		}
	}
}

// Close stops the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
