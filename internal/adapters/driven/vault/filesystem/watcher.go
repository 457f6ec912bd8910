package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/logger"
)

// ChangeHandler is called with the vault-relative path of a document that was
// created, written, removed or renamed. Calls are serialised.
type ChangeHandler func(ctx context.Context, path string)

// Watcher watches a vault recursively and reports changed documents after a
// quiet period per file.
type Watcher struct {
	vault    *Vault
	debounce time.Duration
	onChange ChangeHandler
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// NewWatcher creates a watcher for vault. A non-positive debounce reports
// every event immediately.
func NewWatcher(vault *Vault, debounce time.Duration, onChange ChangeHandler, log *zap.Logger) *Watcher {
	return &Watcher{
		vault:    vault,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.OrNop(log),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.vault.Root(), 0755); err != nil {
		return fmt.Errorf("creating vault directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addRecursive(watcher, w.vault.Root()); err != nil {
		return err
	}
	w.logger.Info("watching vault", zap.String("root", w.vault.Root()))

	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			if rel, ok := w.handleEvent(watcher, event); ok {
				w.schedule(ctx, rel)
			}

		case rel := <-w.ready:
			w.logger.Debug("vault document changed", zap.String("path", rel))
			w.onChange(ctx, rel)

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("fsnotify error", zap.Error(wErr))
		}
	}
}

// handleEvent maps a filesystem event to a changed document path. New
// directories are added to the watch list.
func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !isHidden(filepath.Base(event.Name)) {
				if err := w.addRecursive(watcher, event.Name); err != nil {
					w.logger.Warn("failed to watch new directory",
						zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return "", false
		}
	}

	rel, err := w.vault.relative(event.Name)
	if err != nil || !w.vault.Indexable(rel) {
		return "", false
	}
	return rel, true
}

// schedule reports rel once no further event for it arrived within the debounce.
func (w *Watcher) schedule(ctx context.Context, rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[rel]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[rel] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, rel)
		w.mu.Unlock()

		select {
		case w.ready <- rel:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for rel, t := range w.pending {
		t.Stop()
		delete(w.pending, rel)
	}
}

// addRecursive watches dir and every non-hidden directory beneath it.
func (w *Watcher) addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.vault.Root() && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
