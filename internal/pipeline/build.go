package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/chunker"
	"github.com/dgallion1/docnav/internal/importer"
	"github.com/dgallion1/docnav/internal/linkcheck"
	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/navtree"
)

// ScriptName is the navigation data script a documentation tree is built from.
const ScriptName = "navtreedata.js"

// BuildOptions controls how a document is turned into a publishable site.
type BuildOptions struct {
	ChunkSize       int
	LinkCheck       bool
	LinkConcurrency int
	Log             *slog.Logger

	// AllowDeferred leaves nodes deferred when their subtree script does not
	// exist instead of failing the build. Validation then reports the tree
	// as unresolved.
	AllowDeferred bool

	// Stage, when set, is told when each build phase starts.
	Stage func(status JobStatus, phase string)
}

// Result is a built site.
type Result struct {
	Document *navtree.Document
	Subtrees []*navtree.Subtree
	Chunks   []navtree.IndexChunk
	Issues   []navtree.Issue
}

// Pages counts the URLs in the position tables.
func (r *Result) Pages() int {
	n := 0
	for _, c := range r.Chunks {
		n += len(c.Entries)
	}
	return n
}

// Build loads deferred subtrees from fsys, chunks the position index and
// validates the document. fsys may be nil when only the script itself is
// available; subtrees then stay deferred and links are not checked. A
// missing subtree script is an error unless AllowDeferred is set. A
// document without an index gets one computed from its tree.
//
// Structural problems, including cycles, are returned as issues. The error
// is reserved for unreadable subtree scripts, I/O failures and cancellation.
func Build(ctx context.Context, doc *navtree.Document, fsys fs.FS, opts BuildOptions) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	stage := opts.Stage
	if stage == nil {
		stage = func(JobStatus, string) {}
	}
	res := &Result{Document: doc}

	if fsys != nil && !doc.Tree.Resolved() {
		stage(StatusResolving, "resolving")
		subtrees, err := navjs.Resolve(ctx, fsys, doc.Tree)
		switch {
		case err == nil:
			res.Subtrees = subtrees
			log.Info("resolved subtrees", "subtrees", len(subtrees))
		case opts.AllowDeferred && errors.Is(err, fs.ErrNotExist):
			log.Warn("subtree scripts missing, tree stays deferred", "error", err)
		default:
			return nil, fmt.Errorf("resolve: %w", err)
		}
	}

	if _, err := doc.Tree.Count(); errors.Is(err, navtree.ErrCycle) {
		stage(StatusValidating, "validating")
		res.Issues = navtree.Validate(doc, navtree.Options{ChunkSize: opts.ChunkSize})
		return res, nil
	}

	if doc.Tree.Resolved() {
		stage(StatusIndexing, "indexing")
		chunks, index, err := chunker.ChunkIndex(doc.Tree, chunker.Config{ChunkSize: opts.ChunkSize})
		if err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		if len(doc.Index) == 0 {
			doc.Index = index
		}
		res.Chunks = chunks
		log.Info("chunked index", "pages", res.Pages(), "chunks", len(chunks))
	}

	stage(StatusValidating, "validating")
	res.Issues = navtree.Validate(doc, navtree.Options{ChunkSize: opts.ChunkSize})
	if opts.LinkCheck && fsys != nil {
		checker := &linkcheck.Checker{FS: fsys, Concurrency: opts.LinkConcurrency, Log: log}
		issues, err := checker.Check(ctx, doc)
		if err != nil {
			return nil, err
		}
		res.Issues = append(res.Issues, issues...)
	}
	return res, nil
}

// Open turns an upload into a document. A .zip archive is a documentation
// bundle: the shallowest navtreedata.js is decoded and the archive, rooted
// at that script's directory, is returned for subtree and link resolution.
// Any other file goes through the importer for its extension.
func Open(filename string, data []byte) (*navtree.Document, fs.FS, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		imp, err := importer.ForFile(filename)
		if err != nil {
			return nil, nil, err
		}
		doc, err := imp.Import(bytes.NewReader(data), filename)
		if err != nil {
			return nil, nil, err
		}
		return doc, nil, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open bundle: %w", err)
	}
	dir, err := findScript(zr)
	if err != nil {
		return nil, nil, err
	}
	root, err := fs.Sub(zr, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open bundle: %w", err)
	}
	f, err := root.Open(ScriptName)
	if err != nil {
		return nil, nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	doc, err := navjs.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path.Join(dir, ScriptName), err)
	}
	return doc, root, nil
}

func findScript(fsys fs.FS) (string, error) {
	best := ""
	found := false
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ScriptName {
			return nil
		}
		dir := path.Dir(p)
		if !found || depth(dir) < depth(best) {
			best, found = dir, true
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("open bundle: %w", err)
	}
	if !found {
		return "", fmt.Errorf("open bundle: no %s in archive", ScriptName)
	}
	return best, nil
}

func depth(dir string) int {
	if dir == "." {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
