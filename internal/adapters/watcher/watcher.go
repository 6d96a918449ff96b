// Package watcher provides file system watching for hot-reload of catalogs.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jobrunner/meridian/internal/domain"
)

// Event represents a file system event.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler is called when a relevant file event occurs.
type Handler func(ctx context.Context, event Event) error

// pendingEvent is the merged state of the events seen for one path.
type pendingEvent struct {
	last time.Time
	op   Operation
}

// Watcher watches directories for catalog file changes. Bursts of events
// for the same file are merged and delivered once the file has been quiet
// for the debounce period. Events are delivered one at a time.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	match     func(path string) bool
	logger    *slog.Logger
	paths     []string
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]pendingEvent
	wg      sync.WaitGroup
}

// Config holds watcher configuration.
type Config struct {
	Paths    []string
	Debounce time.Duration
	// Match selects the files to report. Defaults to IsCatalogFile.
	Match func(path string) bool
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Match == nil {
		cfg.Match = IsCatalogFile
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		match:     cfg.Match,
		logger:    logger,
		paths:     cfg.Paths,
		debounce:  cfg.Debounce,
		pending:   make(map[string]pendingEvent),
	}, nil
}

// Start starts watching the configured paths. Paths that cannot be watched
// are logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		if err := w.AddPath(path); err != nil {
			w.logger.Warn("failed to watch path", "path", path, "error", err)
		}
	}

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the watcher and waits for an in-flight handler to return.
func (w *Watcher) Stop() error {
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// run receives fsnotify events and flushes quiet paths on a tick.
func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.record(event, time.Now())

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case now := <-ticker.C:
			for _, e := range w.due(now) {
				w.dispatch(ctx, e)
			}
		}
	}
}

// record merges an fsnotify event into the pending set.
func (w *Watcher) record(event fsnotify.Event, now time.Time) {
	if !w.match(event.Name) {
		return
	}

	op := fsnotifyOpToOperation(event.Op)
	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.pending[event.Name]; ok {
		op = mergeOps(prev.op, op)
	}
	w.pending[event.Name] = pendingEvent{last: now, op: op}
}

// due removes and returns the events that have been quiet for the debounce
// period, ordered by path.
func (w *Watcher) due(now time.Time) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []Event
	for path, p := range w.pending {
		if now.Sub(p.last) < w.debounce {
			continue
		}
		delete(w.pending, path)
		events = append(events, Event{Path: path, Operation: p.op})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}

func (w *Watcher) dispatch(ctx context.Context, e Event) {
	w.logger.Info("processing file event", "path", e.Path, "operation", e.Operation.String())
	if err := w.handler(ctx, e); err != nil {
		w.logger.Error("handler error",
			"path", e.Path,
			"operation", e.Operation.String(),
			"error", err,
		)
	}
}

// mergeOps combines the pending operation for a path with a newer one.
// A delete wins over anything before it; a create after a delete means the
// file was replaced.
func mergeOps(prev, next Operation) Operation {
	switch {
	case next == OpDelete:
		return OpDelete
	case prev == OpDelete && next == OpCreate:
		return OpCreate
	case prev == OpDelete:
		return OpModify
	default:
		return prev
	}
}

// fsnotifyOpToOperation converts fsnotify.Op to our Operation type.
func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		// A renamed file is gone from the watched name.
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpModify
	}
}

// IsCatalogFile reports whether path has a catalog extension. Hidden files,
// such as editor swap files and partial downloads, are ignored.
func IsCatalogFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	_, ok := domain.CatalogFormatForPath(path)
	return ok
}

// AddPath adds a path to watch.
func (w *Watcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := w.fsWatcher.Add(absPath); err != nil {
		return err
	}

	w.logger.Info("watching directory", "path", absPath)
	return nil
}

// RemovePath removes a path from watching.
func (w *Watcher) RemovePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := w.fsWatcher.Remove(absPath); err != nil {
		return err
	}

	w.logger.Info("removed watch path", "path", absPath)
	return nil
}
