package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/pipeline"
)

var indexOut string

var indexCmd = &cobra.Command{
	Use:   "index FILE",
	Short: "Write the navtreeindexN.js position scripts",
	Long: `Index resolves the tree in FILE, sorts every linked page and writes one
navtreeindexN.js script per chunk into --out. The chunk heads are printed;
they are what NAVTREEINDEX in navtreedata.js must list.

Examples:
  docnav index html/navtreedata.js --out html
  docnav index manual.pdf --out build --chunk-size 100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, fsys, _, err := openSource(args[0], "")
		if err != nil {
			return err
		}
		given := slices.Clone(doc.Index)
		res, err := pipeline.Build(cmd.Context(), doc, fsys, buildOptions())
		if err != nil {
			return err
		}
		if !doc.Tree.Resolved() {
			return fmt.Errorf("%s: tree has deferred subtrees that could not be loaded", args[0])
		}
		if _, err := doc.Tree.Count(); errors.Is(err, navtree.ErrCycle) {
			return &exitError{code: 2, msg: "tree is cyclic; no index written"}
		}

		if err := os.MkdirAll(indexOut, 0o755); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i := range res.Chunks {
			var buf bytes.Buffer
			if err := navjs.EncodeIndexChunk(&buf, &res.Chunks[i]); err != nil {
				return err
			}
			name := filepath.Join(indexOut, navjs.ChunkFileName(res.Chunks[i].Number))
			if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%d\t%s\n", name, len(res.Chunks[i].Entries), res.Chunks[i].First())
		}

		if len(given) > 0 && !slices.Equal(given, heads(res)) {
			return &exitError{code: 2, msg: "NAVTREEINDEX in " + args[0] + " does not match the chunk heads; regenerate it with `docnav import`"}
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexOut, "out", ".", "directory to write navtreeindexN.js files into")
}

func heads(res *pipeline.Result) []string {
	out := make([]string, len(res.Chunks))
	for i, c := range res.Chunks {
		out[i] = c.First()
	}
	return out
}
