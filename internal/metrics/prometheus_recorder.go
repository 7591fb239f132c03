package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cacheResults    *prom.CounterVec
	computeDuration *prom.HistogramVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
	pagesRendered   prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docuverse",
			Name:      "fetch_cache_results_total",
			Help:      "Fetch key lookups by key type and cache result",
		}, []string{"key_type", "result"}),
		computeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docuverse",
			Name:      "fetch_compute_duration_seconds",
			Help:      "Duration of uncached fetch key computations",
			Buckets:   prom.DefBuckets,
		}, []string{"key_type", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docuverse",
			Name:      "build_duration_seconds",
			Help:      "Total site materialization duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docuverse",
			Name:      "build_outcomes_total",
			Help:      "Publish runs by outcome",
		}, []string{"outcome"}),
		pagesRendered: prom.NewCounter(prom.CounterOpts{
			Namespace: "docuverse",
			Name:      "pages_rendered_total",
			Help:      "Page files written to the content store",
		}),
	}
	reg.MustRegister(pr.cacheResults, pr.computeDuration, pr.buildDuration, pr.buildOutcome, pr.pagesRendered)
	return pr
}

func (p *PrometheusRecorder) IncCacheResult(keyType string, result CacheResult) {
	if p == nil {
		return
	}
	p.cacheResults.WithLabelValues(keyType, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveComputeDuration(keyType string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.computeDuration.WithLabelValues(keyType, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcome) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddPagesRendered(n int) {
	if p == nil {
		return
	}
	p.pagesRendered.Add(float64(n))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
