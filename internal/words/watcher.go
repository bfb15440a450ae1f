package words

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/dounan/diffle-solver/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches dictionary files for changes and invokes a reload
// callback. Editors write through temp files and renames, so events are
// debounced and matched by base name rather than exact path.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	paths       map[string]string // base name -> full path
	onChange    func(path string)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Events        int
	Reloads       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// NewWatcher creates a watcher over the given dictionary files.
// onChange is called with the changed path after debouncing.
func NewWatcher(paths []string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	byBase := make(map[string]string, len(paths))
	for _, p := range paths {
		byBase[filepath.Base(p)] = p
	}

	return &Watcher{
		watcher:     fsw,
		paths:       byBase,
		onChange:    onChange,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the parent directories of the registered files.
// Non-blocking; the event loop runs in a goroutine until Stop or ctx done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]struct{})
	w.mu.RLock()
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	w.mu.RUnlock()

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			logging.DictError("watcher: failed to watch %s: %v", dir, err)
			return err
		}
		logging.DictDebug("watcher: watching %s", dir)
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			logging.DictError("watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)

	w.mu.Lock()
	path, tracked := w.paths[base]
	if !tracked {
		w.mu.Unlock()
		return
	}
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = path

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		w.mu.Unlock()
		return
	}
	if last, ok := w.debounceMap[path]; ok && time.Since(last) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.debounceMap[path] = time.Now()
	w.stats.Reloads++
	onChange := w.onChange
	w.mu.Unlock()

	logging.Dict("watcher: dictionary changed: %s", path)
	if onChange != nil {
		onChange(path)
	}
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	_ = w.watcher.Close()
	<-w.doneCh
}

// Stats returns a copy of the watcher activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}
