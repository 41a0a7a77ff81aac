// Package watch rebuilds sites when a generated documentation tree on disk
// changes.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/pipeline"
	"github.com/dgallion1/docnav/internal/sitestore"
)

// DefaultDebounce is how long a directory must stay quiet before rebuilding.
const DefaultDebounce = 500 * time.Millisecond

// Watcher publishes one site per directory holding a navtreedata.js.
type Watcher struct {
	root     string
	sites    *sitestore.Store
	opts     pipeline.BuildOptions
	debounce time.Duration
	log      *slog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(root string, sites *sitestore.Store, opts pipeline.BuildOptions, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve docs dir: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		root:     abs,
		sites:    sites,
		opts:     opts,
		debounce: debounce,
		log:      log.With("component", "watch", "root", abs),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start builds every site already under the root and then follows changes
// until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	w.watcher = fw

	var dirs []string
	err = filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != w.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return fw.Add(p)
		}
		if d.Name() == pipeline.ScriptName {
			dirs = append(dirs, filepath.Dir(p))
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}

	for _, dir := range dirs {
		if err := w.Rebuild(ctx, dir); err != nil {
			w.log.Warn("initial build failed", "dir", dir, "error", err)
		}
	}
	w.log.Info("watching documentation", "sites", len(dirs))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Close stops watching and cancels pending rebuilds.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.wg.Wait()
	w.mu.Lock()
	for dir, t := range w.pending {
		t.Stop()
		delete(w.pending, dir)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.watcher.Add(ev.Name); err != nil {
				w.log.Warn("watch new directory", "dir", ev.Name, "error", err)
			}
			return
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	// Subtree scripts live next to navtreedata.js, so any script change
	// in a site directory rebuilds it.
	if filepath.Ext(ev.Name) != ".js" {
		return
	}
	dir := filepath.Dir(ev.Name)
	if _, err := os.Stat(filepath.Join(dir, pipeline.ScriptName)); err != nil {
		return
	}
	w.schedule(ctx, dir)
}

func (w *Watcher) schedule(ctx context.Context, dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[dir]; ok {
		t.Stop()
	}
	w.pending[dir] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, dir)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := w.Rebuild(ctx, dir); err != nil {
			w.log.Warn("rebuild failed", "dir", dir, "error", err)
		}
	})
}

// Rebuild decodes dir's navtreedata.js, builds it against the directory and
// replaces the site named after dir.
func (w *Watcher) Rebuild(ctx context.Context, dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, pipeline.ScriptName))
	if err != nil {
		return err
	}
	doc, err := navjs.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", pipeline.ScriptName, err)
	}

	name := w.SiteName(dir)
	opts := w.opts
	opts.Log = w.log.With("site", name)
	res, err := pipeline.Build(ctx, doc, os.DirFS(dir), opts)
	if err != nil {
		return err
	}
	id := w.sites.Put(&sitestore.Site{
		ID:          uuid.NewString(),
		Name:        name,
		Document:    res.Document,
		Chunks:      res.Chunks,
		Issues:      res.Issues,
		ContentHash: pipeline.ContentHashHex(data),
	})
	opts.Log.Info("site rebuilt", "site_id", id, "pages", res.Pages(), "issues", len(res.Issues))
	return nil
}

// SiteName is dir relative to the watched root with forward slashes, or the
// root's base name for the root itself.
func (w *Watcher) SiteName(dir string) string {
	rel, err := filepath.Rel(w.root, dir)
	if err != nil || rel == "." {
		return filepath.Base(w.root)
	}
	return filepath.ToSlash(rel)
}
