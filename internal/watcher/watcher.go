// Package watcher polls a package directory and reports batches of changed
// class, jar or source files.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	daerrors "da/internal/errors"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one changed file.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// ChangeHandler receives each debounced batch of events.
type ChangeHandler func(dir string, events []Event)

// Config contains watcher configuration
type Config struct {
	Debounce     time.Duration
	PollInterval time.Duration
	// Extensions selects the watched files; an empty list watches everything.
	Extensions []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Debounce:     500 * time.Millisecond,
		PollInterval: time.Second,
		Extensions:   []string{".class", ".java", ".jar"},
	}
}

type fileState struct {
	size    int64
	modTime time.Time
}

// Watcher polls one directory. Subdirectories are not watched since they
// hold other packages.
type Watcher struct {
	dir     string
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	files   map[string]fileState
}

// New creates a watcher for dir.
func New(dir string, config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		dir:     dir,
		config:  config,
		logger:  logger,
		handler: handler,
	}
}

// Run polls until ctx is done. It fails only when the directory cannot be read
// at start; later read errors are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	files, err := w.scan()
	if err != nil {
		return daerrors.New(daerrors.IOError, daerrors.StageLoad, "cannot watch "+w.dir, err)
	}
	w.files = files

	batch := NewBatchDebouncer(w.config.Debounce, func(events []Event) {
		w.logger.Debug("Changes detected", "dir", w.dir, "events", len(events))
		if w.handler != nil {
			w.handler(w.dir, events)
		}
	})
	defer batch.Cancel()

	w.logger.Info("Watching package", "dir", w.dir, "interval", w.config.PollInterval, "debounce", w.config.Debounce)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			batch.Add(w.Poll()...)
		}
	}
}

// Poll rescans the directory and returns the changes since the last scan,
// sorted by path.
func (w *Watcher) Poll() []Event {
	files, err := w.scan()
	if err != nil {
		w.logger.Warn("Cannot scan package", "dir", w.dir, "error", err)
		return nil
	}
	events := diff(w.files, files, time.Now())
	w.files = files
	return events
}

func (w *Watcher) scan() (map[string]fileState, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]fileState, len(entries))
	for _, e := range entries {
		if e.IsDir() || !w.watched(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		files[filepath.Join(w.dir, e.Name())] = fileState{size: info.Size(), modTime: info.ModTime()}
	}
	return files, nil
}

func (w *Watcher) watched(name string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range w.config.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func diff(old, cur map[string]fileState, now time.Time) []Event {
	var events []Event
	for path, st := range cur {
		prev, ok := old[path]
		switch {
		case !ok:
			events = append(events, Event{Type: EventCreate, Path: path, Timestamp: now})
		case prev.size != st.size || !prev.modTime.Equal(st.modTime):
			events = append(events, Event{Type: EventModify, Path: path, Timestamp: now})
		}
	}
	for path := range old {
		if _, ok := cur[path]; !ok {
			events = append(events, Event{Type: EventDelete, Path: path, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
