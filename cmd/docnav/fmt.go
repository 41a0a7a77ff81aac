package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/navjs"
)

var (
	fmtCheck bool
	fmtWrite bool
)

var chunkFile = regexp.MustCompile(`^navtreeindex[0-9]+\.js$`)

var fmtCmd = &cobra.Command{
	Use:   "fmt FILE...",
	Short: "Re-emit navigation scripts in canonical layout",
	Long: `Fmt decodes each script and encodes it again: navtreedata.js, deferred
subtree scripts and navtreeindexN.js chunks are all accepted. Scripts written
by Doxygen come back byte for byte.

Examples:
  docnav fmt html/navtreedata.js            # print to stdout
  docnav fmt -w html/*.js                   # rewrite in place
  docnav fmt --check html/navtreedata.js    # exit 2 if not canonical`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var changed []string
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out, err := canonical(filepath.Base(path), src)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			switch {
			case fmtCheck:
				if !bytes.Equal(src, out) {
					changed = append(changed, path)
				}
			case fmtWrite:
				if !bytes.Equal(src, out) {
					if err := os.WriteFile(path, out, 0o644); err != nil {
						return err
					}
				}
			default:
				if _, err := cmd.OutOrStdout().Write(out); err != nil {
					return err
				}
			}
		}
		if len(changed) > 0 {
			for _, path := range changed {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return &exitError{code: 2, msg: fmt.Sprintf("%d file(s) not in canonical form", len(changed))}
		}
		return nil
	},
}

func init() {
	fmtCmd.Flags().BoolVar(&fmtCheck, "check", false, "list files whose layout differs and exit 2")
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "write the result back to the source file")
	fmtCmd.MarkFlagsMutuallyExclusive("check", "write")
}

// canonical re-encodes a script, picking the decoder from the file name and,
// for other names, from the variables the script declares.
func canonical(name string, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if chunkFile.MatchString(name) {
		chunk, err := navjs.DecodeIndexChunk(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		err = navjs.EncodeIndexChunk(&buf, chunk)
		return buf.Bytes(), err
	}

	doc, err := navjs.Decode(bytes.NewReader(src))
	if errors.Is(err, navjs.ErrUnknownVar) {
		st, err := navjs.DecodeSubtree(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		err = navjs.EncodeSubtree(&buf, st)
		return buf.Bytes(), err
	}
	if err != nil {
		return nil, err
	}
	err = navjs.Encode(&buf, doc)
	return buf.Bytes(), err
}
