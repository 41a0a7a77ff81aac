package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/navjs"
	"github.com/dgallion1/docnav/internal/pipeline"
)

var breadcrumbCmd = &cobra.Command{
	Use:   "breadcrumb FILE URL",
	Short: "Show where a page sits in the navigation tree",
	Long: `Breadcrumb prints the labels from the root entry down to the node linking
to URL, the position path the index scripts store for it and the
navtreeindexN.js chunk the viewer would load to find it.

Example:
  docnav breadcrumb html/navtreedata.js group__wm8978__base__driver.html`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, fsys, _, err := openSource(args[0], "")
		if err != nil {
			return err
		}
		if _, err := pipeline.Build(cmd.Context(), doc, fsys, buildOptions()); err != nil {
			return err
		}

		url := args[1]
		path, ok := doc.Tree.PathTo(url)
		if !ok {
			return fmt.Errorf("%s is not linked from the navigation tree", url)
		}
		labels := make([]string, 0, len(path)+1)
		for _, n := range doc.Tree.Breadcrumb(url) {
			labels = append(labels, n.Label)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.Join(labels, " > "))
		fmt.Fprintf(out, "path:  %v\n", path)
		fmt.Fprintf(out, "chunk: %s\n", navjs.ChunkFileName(doc.Index.Locate(url)))
		return nil
	},
}
