package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder on a private registry.
type PrometheusRecorder struct {
	reg         *prom.Registry
	requests    *prom.CounterVec
	reqDuration *prom.HistogramVec
	jobOutcomes *prom.CounterVec
	jobDuration prom.Histogram
	issues      *prom.CounterVec
	queueDepth  prom.Gauge
}

// NewPrometheusRecorder registers the docnav metrics on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnav",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		reqDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docnav",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prom.DefBuckets,
		}, []string{"route"}),
		jobOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnav",
			Name:      "job_outcomes_total",
			Help:      "Build jobs by final status",
		}, []string{"outcome"}),
		jobDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docnav",
			Name:      "job_duration_seconds",
			Help:      "Build job duration",
			Buckets:   prom.DefBuckets,
		}),
		issues: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnav",
			Name:      "validation_issues_total",
			Help:      "Validation issues by code and severity",
		}, []string{"code", "severity"}),
		queueDepth: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docnav",
			Name:      "job_queue_depth",
			Help:      "Jobs waiting for a worker",
		}),
	}
	reg.MustRegister(pr.requests, pr.reqDuration, pr.jobOutcomes, pr.jobDuration, pr.issues, pr.queueDepth)
	return pr
}

func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.reqDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncJobOutcome(outcome string) {
	if p == nil {
		return
	}
	p.jobOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncIssue(code, severity string) {
	if p == nil {
		return
	}
	p.issues.WithLabelValues(code, severity).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

// Handler serves the recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
