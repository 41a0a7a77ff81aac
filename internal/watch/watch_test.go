package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docnav/internal/pipeline"
	"github.com/dgallion1/docnav/internal/sitestore"
)

const script = `var NAVTREE =
[
  [ "%s", "index.html", [
    [ "Modules", "modules.html", null ]
  ] ]
];

var NAVTREEINDEX =
[
"index.html"
];

var SYNCONMSG = 'click to disable panel synchronisation';
var SYNCOFFMSG = 'click to enable panel synchronisation';
`

func writeSite(t *testing.T, dir, title string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		pipeline.ScriptName: strings.Replace(script, "%s", title, 1),
		"index.html":        "<html><body>index</body></html>",
		"modules.html":      "<html><body>modules</body></html>",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newWatcher(t *testing.T, root string, sites *sitestore.Store) *Watcher {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := New(root, sites, pipeline.BuildOptions{LinkCheck: true}, 20*time.Millisecond, log)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w
}

func rootLabel(s *sitestore.Site) string {
	return s.Document.Tree[0].Label
}

func TestRebuild(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "wm8978", "html")
	writeSite(t, dir, "LibDriver WM8978")

	sites := sitestore.New()
	w := newWatcher(t, root, sites)
	if err := w.Rebuild(context.Background(), dir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	site, ok := sites.ByName("wm8978/html")
	if !ok {
		t.Fatalf("expected site wm8978/html, have %d sites", len(sites.List()))
	}
	if len(site.Issues) != 0 {
		t.Errorf("expected no issues, got %v", site.Issues)
	}
	if site.Summary().Pages != 2 {
		t.Errorf("expected 2 pages, got %d", site.Summary().Pages)
	}
	first := site.ID

	// Rebuilding keeps the site's ID.
	if err := w.Rebuild(context.Background(), dir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	site, _ = sites.ByName("wm8978/html")
	if site.ID != first {
		t.Errorf("expected ID %s to be kept, got %s", first, site.ID)
	}
}

func TestRebuild_MissingScript(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root, sitestore.New())
	if err := w.Rebuild(context.Background(), root); err == nil {
		t.Fatal("expected error for a directory without navtreedata.js")
	}
}

func TestSiteName(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root, sitestore.New())
	if got := w.SiteName(root); got != filepath.Base(root) {
		t.Errorf("expected root base name, got %q", got)
	}
	if got := w.SiteName(filepath.Join(root, "a", "b")); got != "a/b" {
		t.Errorf("expected a/b, got %q", got)
	}
}

func TestWatch_PicksUpChanges(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "wm8978")
	writeSite(t, dir, "Before")

	sites := sitestore.New()
	w := newWatcher(t, root, sites)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	site, ok := sites.ByName("wm8978")
	if !ok || rootLabel(site) != "Before" {
		t.Fatal("expected the initial scan to publish the site")
	}

	writeSite(t, dir, "After")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if site, ok := sites.ByName("wm8978"); ok && rootLabel(site) == "After" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("site was not rebuilt after the script changed")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
