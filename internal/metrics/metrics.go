package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private prometheus registry so tests and multiple engines
// never collide on the default one.
type Registry struct {
	reg          *prometheus.Registry
	FetchTotal   *prometheus.CounterVec
	FetchSeconds *prometheus.HistogramVec
	Retries      *prometheus.CounterVec
	Sources      *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	Analyses     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	fetchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fareadvisor_provider_fetch_total",
		Help: "Provider fetch attempts by outcome.",
	}, []string{"provider", "outcome"})
	fetchSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fareadvisor_provider_fetch_seconds",
		Help:    "Provider fetch latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fareadvisor_retries_total",
		Help: "Retries issued by reason.",
	}, []string{"provider", "reason"})
	sources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fareadvisor_result_source_total",
		Help: "Analyses served by each source.",
	}, []string{"source"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fareadvisor_cache_lookups_total",
		Help: "Cache lookups by result.",
	}, []string{"cache", "result"})
	analyses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fareadvisor_analysis_total",
		Help: "Completed analyses by outcome.",
	}, []string{"outcome"})

	r.MustRegister(fetchTotal, fetchSeconds, retries, sources, cacheLookups, analyses)
	return &Registry{
		reg:          r,
		FetchTotal:   fetchTotal,
		FetchSeconds: fetchSeconds,
		Retries:      retries,
		Sources:      sources,
		CacheLookups: cacheLookups,
		Analyses:     analyses,
	}
}

// ObserveFetch records one provider call.
func (r *Registry) ObserveFetch(provider, outcome string, took time.Duration) {
	r.FetchTotal.WithLabelValues(provider, outcome).Inc()
	r.FetchSeconds.WithLabelValues(provider).Observe(took.Seconds())
}

func (r *Registry) ObserveRetry(provider, reason string) {
	r.Retries.WithLabelValues(provider, reason).Inc()
}

// ObserveSource records which source, real or fallback, produced an analysis.
func (r *Registry) ObserveSource(source string) {
	r.Sources.WithLabelValues(source).Inc()
}

func (r *Registry) ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(cache, result).Inc()
}

func (r *Registry) ObserveAnalysis(outcome string) {
	r.Analyses.WithLabelValues(outcome).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
