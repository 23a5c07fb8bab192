package reload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Updater is the part of a Coordinator the Watcher drives.
type Updater interface {
	Update(ctx context.Context, path string, src []byte) (*PatchSet, error)
	Forget(ctx context.Context, path string) error
}

// Change is one debounced file event.
type Change struct {
	File    string
	Removed bool
}

// Watcher watches a content directory and feeds changed pages to an
// Updater. Bursts of events for the same file within the debounce window
// collapse into one update.
type Watcher struct {
	root     string
	updater  Updater
	debounce time.Duration
	exts     []string
	ignore   []string
	logger   *slog.Logger

	wg sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithExtensions sets the file extensions treated as pages.
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) {
		w.exts = exts
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher over root.
func NewWatcher(root string, u Updater, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     root,
		updater:  u,
		debounce: 100 * time.Millisecond,
		exts:     []string{".html", ".htm"},
		ignore:   []string{".git", "node_modules"},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PagePath maps a file under root to its page path: "/" followed by the
// slash-separated relative path.
func PagePath(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	return "/" + filepath.ToSlash(rel), nil
}

// Sync updates every page currently under root. Used to prime the cache
// before watching.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	n := 0
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.root && w.ignored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.isPage(path) {
			return nil
		}
		if err := w.apply(ctx, Change{File: path}); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// Run watches until ctx is done. Changes still inside the debounce window
// are dropped; updates already started finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.logger.Info("watching", "root", w.root, "debounce", w.debounce)

	pending := make(map[string]bool) // file -> removed
	var order []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, file := range order {
			ch := Change{File: file, Removed: pending[file]}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				if err := w.apply(ctx, ch); err != nil && !errors.Is(err, ErrSuperseded) {
					w.logger.Warn("page update failed", "file", ch.File, "error", err)
				}
			}()
		}
		clear(pending)
		order = order[:0]
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				flush()
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.ignored(ev.Name) {
					if err := w.addRecursive(fw, ev.Name); err != nil {
						w.logger.Warn("watch directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if !w.isPage(ev.Name) || w.ignored(ev.Name) {
				continue
			}
			if _, seen := pending[ev.Name]; !seen {
				order = append(order, ev.Name)
			}
			pending[ev.Name] = ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				flush()
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		}
	}
}

func (w *Watcher) apply(ctx context.Context, ch Change) error {
	page, err := PagePath(w.root, ch.File)
	if err != nil {
		return err
	}
	if ch.Removed {
		return w.updater.Forget(ctx, page)
	}
	src, err := os.ReadFile(ch.File)
	if errors.Is(err, fs.ErrNotExist) {
		return w.updater.Forget(ctx, page)
	}
	if err != nil {
		return err
	}
	_, err = w.updater.Update(ctx, page, src)
	return err
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) isPage(path string) bool {
	return slices.Contains(w.exts, strings.ToLower(filepath.Ext(path)))
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	return slices.Contains(w.ignore, base)
}
