package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	chunkSize int
)

var rootCmd = &cobra.Command{
	Use:   "docnav",
	Short: "Build, check and serve Doxygen navigation trees",
	Long: `docnav reads the navtreedata.js script of a generated HTML manual,
together with its deferred subtree scripts, and works with the navigation
tree and anchor index it describes.

Commands:
  validate    check a navigation script and the pages it links to
  fmt         re-emit a script in canonical layout
  import      build a navigation tree from a PDF, DOCX, Markdown, HTML, CSV or outline
  index       write the navtreeindexN.js position scripts
  breadcrumb  show where a page sits in the tree
  serve       run the HTTP API
  push        upload a navigation source to a running server`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0, "URLs per navtreeindexN.js script (default 250, or INDEX_CHUNK_SIZE)")

	rootCmd.AddCommand(versionCmd, validateCmd, fmtCmd, importCmd, indexCmd, breadcrumbCmd, serveCmd, pushCmd)
}

// cliLogger is the text logger CLI commands report progress with.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
