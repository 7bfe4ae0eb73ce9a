package serve

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// watcher observes the docs tree and the configuration file, feeding the
// debouncer on every relevant change. New subdirectories are added to the
// watch as they appear.
type watcher struct {
	fsw      *fsnotify.Watcher
	docsDir  string
	cfgPath  string
	debounce *debouncer
}

func newWatcher(docsDir, cfgPath string, debounce *debouncer) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &watcher{fsw: fsw, docsDir: docsDir, cfgPath: cfgPath, debounce: debounce}

	if err := w.watchTree(docsDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if cfgPath != "" {
		// Watch the config file's directory; editors replace files on save.
		if err := fsw.Add(filepath.Dir(cfgPath)); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch config dir: %w", err)
		}
	}
	return w, nil
}

func (w *watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run pumps filesystem events until the context ends.
func (w *watcher) Run(ctx context.Context) {
	defer func() { _ = w.fsw.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Change detected", "path", event.Name, "op", event.Op.String())
			if event.Op.Has(fsnotify.Create) {
				// A new directory must itself be watched.
				if err := w.watchTree(event.Name); err != nil {
					slog.Debug("Not watching new path", "path", event.Name, "error", err)
				}
			}
			w.debounce.Notify()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

// relevant filters events down to docs content and the configuration file.
func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	if w.cfgPath != "" && sameFile(event.Name, w.cfgPath) {
		return true
	}
	rel, err := filepath.Rel(w.docsDir, event.Name)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func sameFile(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return aa == bb
}
