package metrics

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at time.Time
	ms int64
}

// WindowSnapshot aggregates the build durations inside the window.
type WindowSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Window keeps recent job durations for the stats endpoint. It is a
// Recorder that only listens to ObserveJobDuration.
type Window struct {
	NoopRecorder

	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{samples: make([]sample, 0, 256), maxAge: maxAge}
}

func (w *Window) ObserveJobDuration(d time.Duration) {
	ms := max(d.Milliseconds(), 0)
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)
	w.samples = append(w.samples, sample{at: now, ms: ms})
}

func (w *Window) Snapshot() WindowSnapshot {
	w.mu.Lock()
	w.pruneLocked(time.Now())
	values := make([]int64, 0, len(w.samples))
	for _, s := range w.samples {
		values = append(values, s.ms)
	}
	w.mu.Unlock()

	if len(values) == 0 {
		return WindowSnapshot{}
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	return WindowSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	w.samples = slices.DeleteFunc(w.samples, func(s sample) bool { return s.at.Before(cutoff) })
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}

// Tee fans every observation out to each recorder.
type Tee []Recorder

func (t Tee) ObserveRequest(method, route string, status int, d time.Duration) {
	for _, r := range t {
		r.ObserveRequest(method, route, status, d)
	}
}

func (t Tee) IncJobOutcome(outcome string) {
	for _, r := range t {
		r.IncJobOutcome(outcome)
	}
}

func (t Tee) ObserveJobDuration(d time.Duration) {
	for _, r := range t {
		r.ObserveJobDuration(d)
	}
}

func (t Tee) IncIssue(code, severity string) {
	for _, r := range t {
		r.IncIssue(code, severity)
	}
}

func (t Tee) SetQueueDepth(n int) {
	for _, r := range t {
		r.SetQueueDepth(n)
	}
}
