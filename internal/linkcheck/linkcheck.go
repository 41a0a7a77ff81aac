// Package linkcheck verifies that every page and fragment a navigation
// document points at exists in the generated documentation.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docnav/internal/navtree"
)

// DefaultConcurrency bounds how many pages are parsed at once.
const DefaultConcurrency = 8

// Checker resolves links against a documentation directory.
type Checker struct {
	FS          fs.FS
	Concurrency int
	Log         *slog.Logger
}

// reference is one link to verify and where it came from.
type reference struct {
	link string
	path string // NAVTREE[..] or NAVTREEINDEX[..]
}

// page is what a scanned page offers to incoming links.
type page struct {
	missing bool
	anchors map[string]bool // nil when the page is not HTML
}

// Check reports a dangling-page error for every link whose page does not
// exist and a dangling-anchor error for every fragment the page does not
// define. External links and bare fragments are skipped. The returned error
// is reserved for I/O failures and cancellation.
func (c *Checker) Check(ctx context.Context, doc *navtree.Document) ([]navtree.Issue, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	limit := c.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	refs, err := collect(doc)
	if err != nil {
		return nil, fmt.Errorf("linkcheck: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	for _, r := range refs {
		if name := pageName(r.link); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	var mu sync.Mutex
	pages := make(map[string]page, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := c.scan(name)
			if err != nil {
				return err
			}
			mu.Lock()
			pages[name] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("linkcheck: %w", err)
	}

	var issues []navtree.Issue
	for _, r := range refs {
		name := pageName(r.link)
		p := pages[name]
		if p.missing {
			issues = append(issues, navtree.Issue{
				Severity: navtree.SeverityError,
				Code:     navtree.CodeDanglingPage,
				Path:     r.path,
				Message:  fmt.Sprintf("%q: page %s does not exist", r.link, name),
			})
			continue
		}
		frag := fragment(r.link)
		if frag == "" || p.anchors == nil {
			continue
		}
		if !p.anchors[frag] {
			issues = append(issues, navtree.Issue{
				Severity: navtree.SeverityError,
				Code:     navtree.CodeDanglingAnchor,
				Path:     r.path,
				Message:  fmt.Sprintf("%q: %s has no anchor %q", r.link, name, frag),
			})
		}
	}
	log.Debug("link check finished", "links", len(refs), "pages", len(names), "issues", len(issues))
	return issues, nil
}

func collect(doc *navtree.Document) ([]reference, error) {
	var refs []reference
	err := navtree.Walk(doc.Tree, func(n *navtree.Node, p []int, _ []*navtree.Node) error {
		if checkable(n.Link) {
			refs = append(refs, reference{link: n.Link, path: navtree.TreePath(p)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, a := range doc.Index {
		if checkable(a) {
			refs = append(refs, reference{link: a, path: fmt.Sprintf("NAVTREEINDEX[%d]", i)})
		}
	}
	return refs, nil
}

func checkable(link string) bool {
	return link != "" && !navtree.IsExternal(link) && pageName(link) != ""
}

// pageName strips the fragment and query and cleans the path for fs.FS.
func pageName(link string) string {
	p := navtree.PageOf(link)
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func fragment(link string) string {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		return link[i+1:]
	}
	return ""
}

func (c *Checker) scan(name string) (page, error) {
	f, err := c.FS.Open(name)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return page{missing: true}, nil
	}
	if err != nil {
		return page{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm", ".xhtml":
	default:
		return page{}, nil
	}
	anchors, err := Anchors(f)
	if err != nil {
		return page{}, fmt.Errorf("read %s: %w", name, err)
	}
	return page{anchors: anchors}, nil
}

// Anchors returns every id and name attribute value in an HTML document.
func Anchors(r io.Reader) (map[string]bool, error) {
	anchors := make(map[string]bool)
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return anchors, nil
			}
			return nil, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if (string(key) == "id" || string(key) == "name") && len(val) > 0 {
					anchors[string(val)] = true
				}
			}
		}
	}
}
