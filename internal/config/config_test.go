package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DOCNAV_API_KEY", "WORKER_COUNT", "INDEX_CHUNK_SIZE", "LINKCHECK", "JOB_TTL", "WATCH_DEBOUNCE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.IndexChunkSize != 250 {
		t.Errorf("expected chunk size 250, got %d", cfg.IndexChunkSize)
	}
	if !cfg.LinkCheck {
		t.Error("expected link checking on by default")
	}
	if cfg.WatchDebounce != 500*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.WatchDebounce)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing api key to fail validation")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DOCNAV_API_KEY", "secret")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("INDEX_CHUNK_SIZE", "100")
	t.Setenv("LINKCHECK", "false")
	t.Setenv("JOB_TTL", "10m")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count to fall back to 4, got %d", cfg.WorkerCount)
	}
	if cfg.IndexChunkSize != 100 {
		t.Errorf("expected 100, got %d", cfg.IndexChunkSize)
	}
	if cfg.LinkCheck {
		t.Error("expected link checking disabled")
	}
	if cfg.JobTTL != 10*time.Minute {
		t.Errorf("expected 10m, got %v", cfg.JobTTL)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected default upload limit, got %d", cfg.MaxUploadBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
