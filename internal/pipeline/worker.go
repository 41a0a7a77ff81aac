package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/sitestore"
)

// maxReportedIssues caps how many validation errors are copied into a job.
const maxReportedIssues = 20

// Worker processes a single site build job.
type Worker struct {
	sites *sitestore.Store
	rec   metrics.Recorder
	log   *slog.Logger
	opts  BuildOptions
}

func NewWorker(sites *sitestore.Store, rec metrics.Recorder, log *slog.Logger, opts BuildOptions) *Worker {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Worker{sites: sites, rec: rec, log: log, opts: opts}
}

// Process runs the full build pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "site", job.Name)
	start := time.Now()
	defer func() {
		w.rec.IncJobOutcome(string(job.CurrentStatus()))
		w.rec.ObserveJobDuration(time.Since(start))
		job.SetFileData(nil)
	}()

	// Phase 1: Import
	job.SetStatus(StatusImporting, "importing")
	data := job.FileData()
	hash := ContentHashHex(data)
	job.SetContentHash(hash)

	if !job.Force {
		if existing, ok := w.sites.ByHash(hash); ok {
			log.Info("duplicate upload, skipping", "existing_site_id", existing.ID)
			job.SetSite(existing.ID)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	doc, fsys, err := Open(job.Filename, data)
	if err != nil {
		log.Error("import failed", "error", err)
		job.AddError(fmt.Sprintf("import: %s", err))
		job.SetStatus(StatusFailed, "importing")
		return
	}

	// Phases 2-4: Resolve, index, validate
	opts := w.opts
	opts.Log = log
	opts.Stage = job.SetStatus
	res, err := Build(ctx, doc, fsys, opts)
	if err != nil {
		log.Error("build failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, string(job.CurrentStatus()))
		return
	}

	for _, is := range res.Issues {
		w.rec.IncIssue(is.Code, string(is.Severity))
	}

	id := w.sites.Put(&sitestore.Site{
		ID:          uuid.NewString(),
		Name:        job.Name,
		Document:    res.Document,
		Chunks:      res.Chunks,
		Issues:      res.Issues,
		ContentHash: hash,
	})
	job.SetSite(id)
	job.SetCounts(res.Pages(), len(res.Chunks), len(res.Subtrees))
	job.SetIssues(len(res.Issues))
	log.Info("site published", "site_id", id, "pages", res.Pages(), "issues", len(res.Issues))

	if !navtree.HasErrors(res.Issues) {
		job.SetStatus(StatusCompleted, "done")
		return
	}
	reported := 0
	for _, is := range res.Issues {
		if is.Severity != navtree.SeverityError {
			continue
		}
		if reported == maxReportedIssues {
			job.AddError("further validation errors omitted")
			break
		}
		job.AddError(is.String())
		reported++
	}
	job.SetStatus(StatusPartial, "done")
}
