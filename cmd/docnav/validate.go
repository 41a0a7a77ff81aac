package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/pipeline"
)

var (
	validateDocs   string
	validateLinks  bool
	validateOutput string
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a navigation tree and its index",
	Long: `Validate decodes FILE, loads its deferred subtree scripts and checks the
tree and NAVTREEINDEX for structural problems. FILE may be a navtreedata.js,
a zipped documentation bundle or any importable document.

With --docs (or for a bundle) every page and anchor the tree links to is
checked as well.

Exit status is 2 when any error is reported.

Examples:
  docnav validate html/navtreedata.js
  docnav validate html/navtreedata.js --docs html
  docnav validate manual.zip -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, fsys, ownDir, err := openSource(args[0], validateDocs)
		if err != nil {
			return err
		}
		opts := buildOptions()
		opts.AllowDeferred = ownDir
		opts.LinkCheck = validateLinks && (validateDocs != "" || strings.HasSuffix(strings.ToLower(args[0]), ".zip"))
		res, err := pipeline.Build(cmd.Context(), doc, fsys, opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		issues := res.Issues
		if issues == nil {
			issues = []navtree.Issue{}
		}
		switch validateOutput {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(issues); err != nil {
				return err
			}
		case "yaml":
			if err := yaml.NewEncoder(out).Encode(issues); err != nil {
				return err
			}
		case "text":
			errs := 0
			for _, is := range issues {
				fmt.Fprintln(out, is.String())
				if is.Severity == navtree.SeverityError {
					errs++
				}
			}
			fmt.Fprintf(out, "%d pages, %d subtrees, %d errors, %d warnings\n",
				res.Pages(), len(res.Subtrees), errs, len(issues)-errs)
		default:
			return fmt.Errorf("unknown output format %q", validateOutput)
		}

		if navtree.HasErrors(issues) {
			return &exitError{code: 2}
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateDocs, "docs", "", "documentation directory subtrees and links resolve against")
	validateCmd.Flags().BoolVar(&validateLinks, "links", true, "check linked pages and anchors when documentation is available")
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "text", "output format: text, json or yaml")
}
