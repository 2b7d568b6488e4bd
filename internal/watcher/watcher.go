// Package watcher translates documents dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one new file.
type Handler func(ctx context.Context, path string) error

type Options struct {
	// Extensions lists the accepted file extensions, dot included.
	Extensions []string
	// Ignore reports files that must not be handled, such as translated
	// outputs written back into the watched directory.
	Ignore func(path string) bool
	// MaxConcurrent bounds the handlers running at once. Defaults to 2.
	MaxConcurrent int
	// Settle is how long to wait after a create event before handling the
	// file, so that writers can finish. Defaults to 500ms.
	Settle time.Duration
	Logger *slog.Logger
}

type Watcher struct {
	dir       string
	handler   Handler
	opts      Options
	exts      map[string]bool
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	return &Watcher{
		dir:       dir,
		handler:   handler,
		opts:      opts,
		exts:      exts,
		logger:    logger,
		watcher:   fsw,
		semaphore: make(chan struct{}, opts.MaxConcurrent),
	}, nil
}

// Start handles create events until ctx is cancelled, then waits for the
// running handlers.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching directory", "dir", w.dir, "max_concurrent", w.opts.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("waiting for running jobs")
			w.wg.Wait()
			w.logger.Info("watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !w.accepts(event.Name) {
				w.logger.Debug("ignoring file", "path", event.Name)
				continue
			}
			w.logger.Info("new document", "path", event.Name)

			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}
			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				select {
				case <-time.After(w.opts.Settle):
				case <-ctx.Done():
					return
				}
				if err := w.handler(ctx, path); err != nil {
					w.logger.Error("failed to process document", "path", path, "error", err)
				}
			}(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.exts) > 0 && !w.exts[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	if w.opts.Ignore != nil && w.opts.Ignore(path) {
		return false
	}
	return true
}
