package survey

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads survey definitions into a Store when their files change.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	loader      *Loader
	store       *Store
	logger      utils.Logger
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

func NewWatcher(loader *Loader, store *Store, logger utils.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     w,
		loader:      loader,
		store:       store,
		logger:      logger.With("component", "survey_watcher", "dir", loader.Dir()),
		pending:     make(map[string]time.Time),
		debounceDur: 250 * time.Millisecond, // editors write files in several steps
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the definition directory. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.loader.Dir()); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.logger.Info("Watching survey definitions")

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Failed to close survey watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

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
			w.logger.Error("Survey watcher error", "error", err)
		case now := <-ticker.C:
			w.flushPending(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsDefinitionFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.pending[event.Name] = time.Now()
}

func (w *Watcher) flushPending(now time.Time) {
	for path, at := range w.pending {
		if now.Sub(at) < w.debounceDur {
			continue
		}
		delete(w.pending, path)
		w.reload(path)
	}
}

// reload installs the file's current content; a missing file removes the survey type, a
// broken file keeps the previous definition.
func (w *Watcher) reload(path string) {
	s, err := w.loader.LoadFile(path)
	if err != nil {
		if isNotExist(err) {
			surveyType := TypeFromPath(path)
			w.store.Remove(surveyType)
			w.logger.Info("Survey definition removed", "survey_type", surveyType)
			return
		}
		w.logger.Warn("Keeping previous survey definition", "path", path, "error", err)
		return
	}
	w.store.Put(s)
	w.logger.Info("Survey definition reloaded", "survey_type", s.Type, "path", path)
}
