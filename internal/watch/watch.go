// Package watch re-scans a local page whenever it changes on disk. Each
// change starts a new scan; an older scan still in flight is superseded.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/pipeline"
	"go.uber.org/zap"
)

// Scanner produces a report for a file. Calling Scan again must cancel the
// previous call.
type Scanner interface {
	Scan(ctx context.Context, target string) (*model.Report, error)
}

// ReportFunc receives every report that was not superseded
type ReportFunc func(report *model.Report)

// Watcher watches one file
type Watcher struct {
	path     string
	scanner  Scanner
	onReport ReportFunc
	debounce time.Duration
	logger   *zap.Logger
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce coalesces bursts of writes (editors often save in several steps)
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for path
func New(path string, scanner Scanner, onReport ReportFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	w := &Watcher{
		path:     abs,
		scanner:  scanner,
		onReport: onReport,
		debounce: 200 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run scans once, then again after every change, until ctx is done. It
// returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	// Watch the directory: editors that save via rename drop file watches
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching for changes", zap.String("path", w.path))

	var wg sync.WaitGroup
	defer wg.Wait()

	trigger := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.scan(ctx)
		}()
	}
	trigger()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("file changed", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case <-timer.C:
			trigger()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	report, err := w.scanner.Scan(ctx, w.path)
	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		w.logger.Debug("scan superseded by a newer change")
	case ctx.Err() != nil:
	case err != nil:
		w.logger.Error("scan failed", zap.String("path", w.path), zap.Error(err))
	default:
		w.onReport(report)
	}
}
