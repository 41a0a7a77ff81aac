package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/pipeline"
	"github.com/dgallion1/docnav/internal/sitestore"
)

const testKey = "secret"

const outline = `LibDriver WM8978 | index.html
  Modules | modules.html
    wm8978_init | group__wm8978__base__driver.html#ga1
    wm8978_deinit | group__wm8978__base__driver.html#ga2
  Files | files.html
`

func testServer(t *testing.T) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		IndexChunkSize: 2,
		JobTTL:         time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	prom := metrics.NewPrometheusRecorder(nil)
	orch := pipeline.NewOrchestrator(cfg, sitestore.New(), prom, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, prom, log, cfg), orch
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field string, files map[string]string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		io.WriteString(fw, content)
	}
	for k, v := range values {
		mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func waitJob(t *testing.T, orch *pipeline.Orchestrator, id string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job := orch.GetJob(id)
		if job == nil {
			t.Fatalf("job %s not found", id)
		}
		if snap := job.Snapshot(); snap.Status.Done() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func upload(t *testing.T, s *Server, orch *pipeline.Orchestrator) string {
	t.Helper()
	body, ct := multipartBody(t, "file", map[string]string{"wm8978.txt": outline}, nil)
	rec := do(t, s, http.MethodPost, "/api/sites", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID   string `json:"job_id"`
		Name    string `json:"name"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &resp)
	if resp.Name != "wm8978" {
		t.Errorf("expected site name from filename, got %q", resp.Name)
	}
	if resp.PollURL != "/api/jobs/"+resp.JobID {
		t.Errorf("unexpected poll url %q", resp.PollURL)
	}

	snap := waitJob(t, orch, resp.JobID)
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	return snap.SiteID
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s, _ := testServer(t)
	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", rec.Code)
	}
}

func TestUploadRejectsUnsupported(t *testing.T) {
	s, _ := testServer(t)
	body, ct := multipartBody(t, "file", map[string]string{"notes.exe": "MZ"}, nil)
	rec := do(t, s, http.MethodPost, "/api/sites", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSiteLifecycle(t *testing.T) {
	s, orch := testServer(t)
	id := upload(t, s, orch)

	rec := do(t, s, http.MethodGet, "/api/sites", nil, "")
	var list struct {
		Sites []sitestore.Summary `json:"sites"`
	}
	decode(t, rec, &list)
	if len(list.Sites) != 1 || list.Sites[0].ID != id || list.Sites[0].Pages != 5 {
		t.Fatalf("unexpected site list %+v", list.Sites)
	}

	rec = do(t, s, http.MethodGet, "/api/sites/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get site: expected 200, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/navtreedata.js", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "var NAVTREE =") {
		t.Fatalf("script: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Errorf("unexpected script content type %q", ct)
	}

	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/navtreeindex1.js", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "var NAVTREEINDEX1 =") {
		t.Fatalf("index script: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/navtreeindex9.js", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing chunk: expected 404, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/tree?format=yaml", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "label: LibDriver WM8978") {
		t.Fatalf("yaml tree: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/tree?format=xml", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad format: expected 400, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/breadcrumb?url=group__wm8978__base__driver.html%23ga2", nil, "")
	var crumbs struct {
		Path   []int   `json:"path"`
		Crumbs []crumb `json:"crumbs"`
	}
	decode(t, rec, &crumbs)
	if len(crumbs.Path) != 2 || crumbs.Path[0] != 0 || crumbs.Path[1] != 1 {
		t.Errorf("unexpected path %v", crumbs.Path)
	}
	if len(crumbs.Crumbs) != 3 || crumbs.Crumbs[2].Label != "wm8978_deinit" {
		t.Errorf("unexpected crumbs %+v", crumbs.Crumbs)
	}
	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/breadcrumb?url=nowhere.html", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown url: expected 404, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/sites/"+id+"/issues", nil, "")
	var issues struct {
		HasErrors bool `json:"has_errors"`
	}
	decode(t, rec, &issues)
	if issues.HasErrors {
		t.Errorf("expected no errors: %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/stats", nil, "")
	var stats struct {
		Sites int `json:"sites"`
		Pages int `json:"pages"`
	}
	decode(t, rec, &stats)
	if stats.Sites != 1 || stats.Pages != 5 {
		t.Errorf("unexpected stats %+v", stats)
	}

	rec = do(t, s, http.MethodDelete, "/api/sites/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodDelete, "/api/sites/"+id, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestJobStatus(t *testing.T) {
	s, orch := testServer(t)
	id := upload(t, s, orch)

	rec := do(t, s, http.MethodGet, "/api/jobs/missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}

	// A second identical upload is skipped as a duplicate.
	body, ct := multipartBody(t, "file", map[string]string{"wm8978.txt": outline}, nil)
	rec = do(t, s, http.MethodPost, "/api/sites", body, ct)
	var resp struct {
		JobID string `json:"job_id"`
	}
	decode(t, rec, &resp)
	snap := waitJob(t, orch, resp.JobID)
	if snap.Status != pipeline.StatusDupSkipped || snap.SiteID != id {
		t.Errorf("expected duplicate of %s, got %q %s", id, snap.Status, snap.SiteID)
	}

	rec = do(t, s, http.MethodGet, "/api/jobs/"+resp.JobID, nil, "")
	var got pipeline.JobSnapshot
	decode(t, rec, &got)
	if got.ID != resp.JobID || got.Status != pipeline.StatusDupSkipped {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

func TestBatchUpload(t *testing.T) {
	s, orch := testServer(t)
	body, ct := multipartBody(t, "files", map[string]string{
		"a.txt":   "A | a.html\n",
		"b.csv":   "0,B,b.html\n",
		"bad.exe": "MZ",
	}, nil)
	rec := do(t, s, http.MethodPost, "/api/sites/batch", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Jobs []map[string]string `json:"jobs"`
	}
	decode(t, rec, &resp)
	if len(resp.Jobs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Jobs))
	}
	queued := 0
	for _, j := range resp.Jobs {
		if j["filename"] == "bad.exe" {
			if j["error"] == "" {
				t.Error("expected an error for bad.exe")
			}
			continue
		}
		queued++
		waitJob(t, orch, j["job_id"])
	}
	if queued != 2 {
		t.Errorf("expected 2 queued jobs, got %d", queued)
	}
	if n := len(orch.Sites().List()); n != 2 {
		t.Errorf("expected 2 sites, got %d", n)
	}
}

func TestUnknownSite(t *testing.T) {
	s, _ := testServer(t)
	for _, path := range []string{"/api/sites/nope", "/api/sites/nope/tree", "/api/sites/nope/navtreedata.js", "/api/sites/nope/issues"} {
		rec := do(t, s, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}
