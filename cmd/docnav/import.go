package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/export"
	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/pipeline"
)

var (
	importOut    string
	importFormat string
)

var importCmd = &cobra.Command{
	Use:   "import SRC",
	Short: "Build a navigation tree from another document",
	Long: `Import reads the outline of SRC and writes it as a navigation script
(js), or as the JSON or YAML tree export. Supported sources: .pdf bookmarks,
.docx headings, Markdown and HTML headings, depth,label,link CSV, indented
"label | link" outlines, and existing .js/.json/.yaml trees.

The output format follows --format, then the extension of --out, then js.

Examples:
  docnav import manual.pdf -o navtreedata.js
  docnav import html/navtreedata.js --format yaml
  docnav import outline.txt -o tree.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := importFormat
		if format == "" {
			format = "js"
			if ext := strings.TrimPrefix(filepath.Ext(importOut), "."); ext != "" {
				format = ext
			}
		}

		doc, fsys, ownDir, err := openSource(args[0], "")
		if err != nil {
			return err
		}
		opts := buildOptions()
		opts.AllowDeferred = ownDir
		res, err := pipeline.Build(cmd.Context(), doc, fsys, opts)
		if err != nil {
			return err
		}
		for _, is := range res.Issues {
			opts.Log.Warn("validation", "issue", is.String())
		}

		out, err := render(res.Document, format)
		if err != nil {
			return err
		}
		return writeOutput(importOut, out)
	},
}

func init() {
	importCmd.Flags().StringVarP(&importOut, "out", "o", "", "output file (default stdout)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "output format: js, json or yaml")
}

func render(doc *navtree.Document, format string) ([]byte, error) {
	if strings.EqualFold(format, "js") {
		var buf bytes.Buffer
		if err := navjs.Encode(&buf, doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return export.Marshal(doc, f)
}
