package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/api"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/pipeline"
	"github.com/dgallion1/docnav/internal/sitestore"
	"github.com/dgallion1/docnav/internal/watch"
)

var (
	servePort string
	serveDocs string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docnav HTTP API",
	Long: `Start the docnav HTTP server.

Configuration comes from the environment (PORT, DOCNAV_API_KEY,
WORKER_COUNT, MAX_QUEUE_SIZE, MAX_UPLOAD_BYTES, INDEX_CHUNK_SIZE, LINKCHECK,
LINKCHECK_CONCURRENCY, JOB_TTL, DOCS_DIR, WATCH_DEBOUNCE); flags override it.

When a docs directory is set every navtreedata.js below it is published as
a site and rebuilt when its scripts change.

Examples:
  DOCNAV_API_KEY=secret docnav serve
  DOCNAV_API_KEY=secret docnav serve --port 9000 --docs ./build/html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		cfg := config.Load()
		if servePort != "" {
			cfg.Port = servePort
		}
		if serveDocs != "" {
			cfg.DocsDir = serveDocs
		}
		if chunkSize > 0 {
			cfg.IndexChunkSize = chunkSize
		}
		if err := cfg.Validate(); err != nil {
			log.Error("invalid configuration", "error", err)
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Initialize pipeline.
		sites := sitestore.New()
		prom := metrics.NewPrometheusRecorder(nil)
		orch := pipeline.NewOrchestrator(cfg, sites, prom, log)
		orch.Start(ctx)

		var watcher *watch.Watcher
		if cfg.DocsDir != "" {
			opts := pipeline.BuildOptions{
				ChunkSize:       cfg.IndexChunkSize,
				LinkCheck:       cfg.LinkCheck,
				LinkConcurrency: cfg.LinkCheckConcurrency,
			}
			w, err := watch.New(cfg.DocsDir, sites, opts, cfg.WatchDebounce, log)
			if err != nil {
				orch.Stop()
				return err
			}
			if err := w.Start(ctx); err != nil {
				orch.Stop()
				return err
			}
			watcher = w
		}

		// Initialize HTTP server.
		srv := api.NewServer(orch, prom, log, cfg)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		done := make(chan struct{})
		go func() {
			defer close(done)
			<-ctx.Done()
			log.Info("shutting down...")

			// Stop accepting uploads before the queue closes.
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)

			if watcher != nil {
				watcher.Close()
			}
			orch.Stop()
		}()

		log.Info("starting docnav", "port", cfg.Port, "docs_dir", cfg.DocsDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			cancel()
			<-done
			return err
		}
		<-done
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default 8090, or PORT)")
	serveCmd.Flags().StringVar(&serveDocs, "docs", "", "documentation directory to watch (or DOCS_DIR)")
}
