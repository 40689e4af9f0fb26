// Package metricsvc exposes timetable cache and upstream metrics to Prometheus.
package metricsvc

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/ratiba/core/timetable"
)

const namespace = "ratiba"

type Prometheus struct {
	registry *prometheus.Registry
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	fetches  *prometheus.HistogramVec
}

var _ timetable.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the collectors on a dedicated registry, next to the Go and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Timetable cache hits.",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Timetable cache misses.",
		}, []string{"cache"}),
		fetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
	}
	p.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		p.hits,
		p.misses,
		p.fetches,
	)
	return p
}

func (p *Prometheus) CacheHit(cache string)  { p.hits.WithLabelValues(cache).Inc() }
func (p *Prometheus) CacheMiss(cache string) { p.misses.WithLabelValues(cache).Inc() }

func (p *Prometheus) ObserveFetch(kind string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.fetches.WithLabelValues(kind, outcome).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry is used by tests to gather the collected metrics.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }
