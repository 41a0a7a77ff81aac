package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveRequest("GET", "/api/sites", 200, 20*time.Millisecond)
	pr.IncJobOutcome("completed")
	pr.ObserveJobDuration(300 * time.Millisecond)
	pr.IncIssue("dangling-anchor", "error")
	pr.SetQueueDepth(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}

	rec := httptest.NewRecorder()
	pr.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `docnav_validation_issues_total{code="dangling-anchor",severity="error"} 1`) {
		t.Errorf("issue counter missing from scrape:\n%s", body)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncJobOutcome("failed")
	pr.SetQueueDepth(1)

	var r Recorder = NoopRecorder{}
	r.ObserveRequest("GET", "/health", 200, time.Millisecond)
}
