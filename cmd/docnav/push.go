package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/client"
	"github.com/dgallion1/docnav/internal/pipeline"
)

var (
	pushServer string
	pushAPIKey string
	pushName   string
	pushForce  bool
	pushWait   bool
)

var pushCmd = &cobra.Command{
	Use:   "push FILE...",
	Short: "Upload navigation sources to a running server",
	Long: `Push uploads each FILE to a docnav server (docnav serve) and, with
--wait, follows the build job until it finishes. A zipped documentation
bundle gets its subtrees resolved and links checked on the server.

Exit status is 2 when a build finishes as partial or failed.

Examples:
  docnav push manual.zip --name wm8978
  docnav push a.pdf b.docx --server http://docs:8090 --wait=false`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pushAPIKey == "" {
			return fmt.Errorf("an API key is required (--api-key or DOCNAV_API_KEY)")
		}
		if pushName != "" && len(args) > 1 {
			return fmt.Errorf("--name applies to a single file")
		}
		c := client.NewClient(pushServer, pushAPIKey)
		defer c.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			resp, err := c.Upload(cmd.Context(), filepath.Base(path), data, pushName, pushForce)
			if err != nil {
				return err
			}
			if !pushWait {
				fmt.Fprintf(out, "%s\tjob %s\t%s\n", path, resp.JobID, resp.Status)
				continue
			}
			snap, err := c.Wait(cmd.Context(), resp.JobID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\tsite %s\t%s\t%d pages\n", path, snap.SiteID, snap.Status, snap.Progress.Pages)
			for _, e := range snap.Progress.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}
			if snap.Status == pipeline.StatusPartial || snap.Status == pipeline.StatusFailed {
				failed++
			}
		}
		if failed > 0 {
			return &exitError{code: 2, msg: fmt.Sprintf("%d build(s) did not complete cleanly", failed)}
		}
		return nil
	},
}

func init() {
	server := os.Getenv("DOCNAV_URL")
	if server == "" {
		server = "http://localhost:8090"
	}
	pushCmd.Flags().StringVar(&pushServer, "server", server, "docnav server URL (or DOCNAV_URL)")
	pushCmd.Flags().StringVar(&pushAPIKey, "api-key", os.Getenv("DOCNAV_API_KEY"), "API key (or DOCNAV_API_KEY)")
	pushCmd.Flags().StringVar(&pushName, "name", "", "site name (default: file name without extension)")
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "rebuild even if the same content was already uploaded")
	pushCmd.Flags().BoolVar(&pushWait, "wait", true, "wait for each build to finish")
}
