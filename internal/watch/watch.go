// Package watch converts images as they appear in a directory.
//
// A session watches the input directory for newly created files, debounces
// the create events so half-written files settle, and converts each image
// once. The session report is folded from whatever finished by the time the
// context is cancelled.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/grayforge/internal/imaging"
	"github.com/ppiankov/grayforge/internal/runner"
	"github.com/ppiankov/grayforge/internal/scan"
	"github.com/ppiankov/grayforge/internal/task"
)

// debounceDefault is the debounce interval for file create events.
const debounceDefault = 200 * time.Millisecond

// pollDefault is the polling interval when fsnotify is unavailable.
const pollDefault = 5 * time.Second

// Config holds watch session configuration.
type Config struct {
	InputDir  string
	OutputDir string
	Initial   bool          // convert files already present at startup
	Poll      bool          // fall back to polling if fsnotify unavailable
	Debounce  time.Duration // 0 uses debounceDefault
	Codec     imaging.Codec
	OnResult  func(res task.Result) // optional, called after each conversion
}

// Watcher converts images dropped into the input directory.
type Watcher struct {
	cfg          Config
	pollInterval time.Duration

	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	pending map[string]*time.Timer
	seen    map[string]bool
	results []task.Result
	next    int
}

// New creates a watcher with validated configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.InputDir == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = debounceDefault
	}
	if cfg.Codec == nil {
		cfg.Codec = imaging.NewStdCodec(0)
	}
	return &Watcher{
		cfg:          cfg,
		pollInterval: pollDefault,
		pending:      make(map[string]*time.Timer),
		seen:         make(map[string]bool),
	}, nil
}

// Run watches the input directory until ctx is cancelled, then folds the
// session's conversions into a report. Cancellation is the normal way to
// end a session, so Run returns the report rather than the context error.
func (w *Watcher) Run(ctx context.Context) (*task.BatchReport, error) {
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	startedAt := time.Now()

	if w.cfg.Initial {
		if err := w.convertExisting(ctx); err != nil {
			return nil, fmt.Errorf("convert existing: %w", err)
		}
	}

	var err error
	if w.cfg.Poll {
		err = w.runPollWatcher(ctx)
	} else {
		err = w.runFSWatcher(ctx)
	}
	if err != nil {
		return nil, err
	}

	// Stop pending debounce timers and wait for in-flight conversions
	// before folding, so the report counts only finished work.
	w.mu.Lock()
	w.closed = true
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()
	w.wg.Wait()

	w.mu.Lock()
	results := make([]task.Result, len(w.results))
	copy(results, w.results)
	w.mu.Unlock()
	return task.NewBatchReport(runner.ModeWatch, 1, startedAt, time.Since(startedAt), results), nil
}

// runFSWatcher watches the input directory using fsnotify.
func (w *Watcher) runFSWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.cfg.InputDir); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}

	slog.Info("watching for new images", "mode", "fsnotify", "dir", w.cfg.InputDir, "output", w.cfg.OutputDir)

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !scan.IsImage(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// runPollWatcher watches the input directory by rescanning it. Files are
// converted on first sighting, so the poll interval doubles as the settle
// delay for files still being written.
func (w *Watcher) runPollWatcher(ctx context.Context) error {
	slog.Info("watching for new images", "mode", "poll", "dir", w.cfg.InputDir, "interval", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil
		case <-ticker.C:
			names, err := scan.Images(w.cfg.InputDir)
			if err != nil {
				continue
			}
			for _, name := range names {
				w.convert(filepath.Join(w.cfg.InputDir, name))
			}
		}
	}
}

// convertExisting converts images already present in the input directory.
func (w *Watcher) convertExisting(ctx context.Context) error {
	names, err := scan.Images(w.cfg.InputDir)
	if err != nil {
		return err
	}
	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		w.convert(filepath.Join(w.cfg.InputDir, name))
	}
	return nil
}

// schedule arms a debounce timer for path. A second create event within
// the debounce window resets the timer, so a file copied in chunks is
// converted once, after it settles.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.seen[path] {
		return
	}
	if t, exists := w.pending[path]; exists {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		delete(w.pending, path)
		w.mu.Unlock()
		defer w.wg.Done()
		w.convert(path)
	})
}

// convert runs a single conversion and records its result. Each source is
// converted at most once per session.
func (w *Watcher) convert(path string) {
	w.mu.Lock()
	if w.seen[path] {
		w.mu.Unlock()
		return
	}
	w.seen[path] = true
	index := w.next
	w.next++
	w.mu.Unlock()

	t := task.NewTransformTask(task.WorkItem{Source: path, DestDir: w.cfg.OutputDir}, w.cfg.Codec)
	res := t.Execute()
	res.Index = index

	w.mu.Lock()
	w.results = append(w.results, res)
	w.mu.Unlock()

	if res.Failed() {
		slog.Warn("conversion failed", "file", filepath.Base(path), "outcome", res.Outcome.String(), "error", res.Error)
	} else {
		slog.Debug("converted", "file", filepath.Base(path), "duration", res.Duration)
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(res)
	}
}
