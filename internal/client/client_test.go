package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(url string) *Client {
	c := NewClient(url, "secret")
	c.PollInterval = time.Millisecond
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sites" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if header.Filename != "navtreedata.js" || string(data) != "var NAVTREE = [];" {
			t.Errorf("unexpected upload %q %q", header.Filename, data)
		}
		if r.FormValue("name") != "wm8978" || r.FormValue("force") != "true" {
			t.Errorf("unexpected form values %v", r.Form)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": "j1", "name": "wm8978", "status": "queued", "poll_url": "/api/jobs/j1"})
	}))
	defer srv.Close()

	resp, err := fastClient(srv.URL).Upload(context.Background(), "navtreedata.js", []byte("var NAVTREE = [];"), "wm8978", true)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.JobID != "j1" || resp.PollURL != "/api/jobs/j1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestUpload_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unsupported file type: .exe"}`))
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Upload(context.Background(), "x.exe", nil, "", false)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Message != "unsupported file type: .exe" {
		t.Errorf("unexpected error %+v", statusErr)
	}
	if IsRetryable(err) {
		t.Error("400 should not be retryable")
	}
}

func TestWait_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"busy"}`))
		case 2:
			json.NewEncoder(w).Encode(map[string]string{"job_id": "j1", "status": "indexing"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"job_id": "j1", "site_id": "s1", "status": "completed"})
		}
	}))
	defer srv.Close()

	snap, err := fastClient(srv.URL).Wait(context.Background(), "j1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if snap.Status != "completed" || snap.SiteID != "s1" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestWait_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := fastClient(srv.URL).Wait(context.Background(), "j1"); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != MaxRetries+1 {
		t.Errorf("expected %d calls, got %d", MaxRetries+1, n)
	}
}

func TestWait_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Wait(context.Background(), "nope")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sites/s1/navtreeindex0.js" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("var NAVTREEINDEX0 =\n{\n};\n"))
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	out, err := c.Script(context.Background(), "s1", "navtreeindex0.js")
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	if string(out) != "var NAVTREEINDEX0 =\n{\n};\n" {
		t.Errorf("unexpected body %q", out)
	}
	if _, err := c.Script(context.Background(), "s1", "navtreeindex7.js"); err == nil {
		t.Error("expected error for missing chunk")
	}
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
	if d := Backoff(10); d < 30*time.Second || d >= 45*time.Second {
		t.Errorf("expected cap at 30s, got %v", d)
	}
}
