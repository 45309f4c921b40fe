// Package watcher monitors the inbox directory for new invoice PDFs.
package watcher

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is called with the path of a PDF once its events have settled.
type Handler func(ctx context.Context, path string)

// Watcher watches one directory for incoming .pdf files. Writers often
// deliver a file as a burst of create/write events, so each path is
// debounced: the handler runs only after the settle window has passed
// with no further events for that path.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dir     string
	handler Handler
	log     *zap.Logger
	settle  time.Duration
	pending map[string]time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

// Stats tracks watcher activity.
type Stats struct {
	FilesSeen     int
	FilesHandled  int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// New creates a Watcher for dir. settle controls how long a path must
// be quiet before it is handled; zero means one second, matching the
// original extractor's delay before reading a fresh file.
func New(dir string, settle time.Duration, handler Handler, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = time.Second
	}
	return &Watcher{
		watcher: fsw,
		dir:     dir,
		handler: handler,
		log:     log,
		settle:  settle,
		pending: make(map[string]time.Time),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watching directory", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	flush := time.NewTicker(100 * time.Millisecond)
	defer flush.Stop()

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
			w.log.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-flush.C:
			w.flushSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(strings.ToLower(event.Name), ".pdf") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.log.Debug("file event", zap.String("path", event.Name), zap.Stringer("op", event.Op))

	w.mu.Lock()
	if _, known := w.pending[event.Name]; !known {
		w.stats.FilesSeen++
	}
	w.pending[event.Name] = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
	w.mu.Unlock()
}

// flushSettled hands over paths whose settle window has elapsed.
func (w *Watcher) flushSettled(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.stats.FilesHandled += len(ready)
	w.mu.Unlock()

	for _, path := range ready {
		w.handler(ctx, path)
	}
}

// GetStats returns a snapshot of watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
