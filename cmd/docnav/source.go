package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/pipeline"
)

// openSource reads a navigation script, bundle or importable document. The
// returned FS is what deferred subtrees and links resolve against: the
// bundle itself, docsDir when given, or the script's own directory. ownDir
// reports the last case, where a lone script may lack its subtree files.
func openSource(path, docsDir string) (doc *navtree.Document, fsys fs.FS, ownDir bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, false, err
	}
	doc, fsys, err = pipeline.Open(filepath.Base(path), data)
	if err != nil {
		return nil, nil, false, err
	}
	if fsys == nil {
		switch {
		case docsDir != "":
			fsys = os.DirFS(docsDir)
		case strings.EqualFold(filepath.Ext(path), ".js"):
			fsys = os.DirFS(filepath.Dir(path))
			ownDir = true
		}
	}
	return doc, fsys, ownDir, nil
}

// buildOptions applies the --chunk-size flag over the environment.
func buildOptions() pipeline.BuildOptions {
	cfg := config.Load()
	opts := pipeline.BuildOptions{
		ChunkSize:       cfg.IndexChunkSize,
		LinkConcurrency: cfg.LinkCheckConcurrency,
		Log:             cliLogger(),
	}
	if chunkSize > 0 {
		opts.ChunkSize = chunkSize
	}
	return opts
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
