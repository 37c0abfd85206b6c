package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"vidnotes/internal/logging"
)

// Handler processes one settled video file.
type Handler func(ctx context.Context, path string) error

// Options tune a Watcher.
type Options struct {
	// MaxConcurrent bounds simultaneous handler calls; defaults to 1.
	MaxConcurrent int
	// Settle is how long a file's size must stay unchanged before it is handled.
	Settle time.Duration
	// AllowExtension filters files by extension; nil accepts everything.
	AllowExtension func(ext string) bool
	// ScanExisting handles videos already present without notes at startup.
	ScanExisting bool
	Logger       *slog.Logger
}

// Watcher monitors one directory for new videos.
type Watcher struct {
	dir     string
	handler Handler
	opts    Options
	logger  *slog.Logger
	fs      *fsnotify.Watcher
	sem     chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New starts watching dir. Call Run to process events and Close to release the watch.
func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch: handler required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir: %s is not a directory", dir)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:      dir,
		handler:  handler,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "watch"),
		fs:       fsw,
		sem:      make(chan struct{}, opts.MaxConcurrent),
		inflight: make(map[string]struct{}),
	}, nil
}

// Run dispatches events until ctx is cancelled, then waits for running handlers.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for videos",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("watch_dir", w.dir),
		logging.Int("max_concurrent", w.opts.MaxConcurrent),
	)
	if w.opts.ScanExisting {
		w.scanExisting(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watch_stop"))
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.dispatch(ctx, event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher errors channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may be missed"),
			)
		}
	}
}

// Close releases the underlying watch.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.WarnWithContext(w.logger, "initial scan failed", "watch_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "existing videos are not processed"),
		)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if HasNotes(path) {
			continue
		}
		w.dispatch(ctx, path)
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	if !w.accepts(path) {
		return
	}
	w.mu.Lock()
	if _, busy := w.inflight[path]; busy {
		w.mu.Unlock()
		return
	}
	w.inflight[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.inflight, path)
			w.mu.Unlock()
		}()

		if err := waitForSettle(ctx, path, w.opts.Settle); err != nil {
			if ctx.Err() == nil {
				w.logger.Debug("file vanished before settling", logging.String("source_path", path), logging.Error(err))
			}
			return
		}

		if HasNotes(path) {
			return
		}

		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-w.sem }()

		w.logger.Info("new video detected",
			logging.String(logging.FieldEventType, "watch_video"),
			logging.String("source_file", filepath.Base(path)),
		)
		if err := w.handler(ctx, path); err != nil {
			logging.ErrorWithContext(w.logger, "failed to process video", "watch_process_failed",
				logging.String("source_file", filepath.Base(path)),
				logging.Error(err),
			)
		}
	}()
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, NotesSuffix) {
		return false
	}
	if w.opts.AllowExtension == nil {
		return true
	}
	return w.opts.AllowExtension(filepath.Ext(base))
}

// waitForSettle blocks until path keeps the same non-zero size across one settle interval.
func waitForSettle(ctx context.Context, path string, settle time.Duration) error {
	if settle <= 0 {
		_, err := os.Stat(path)
		return err
	}
	var last int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > 0 && info.Size() == last {
			return nil
		}
		last = info.Size()
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
