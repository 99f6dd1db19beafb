// Package metrics holds the Prometheus collectors of the search and counter sync pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Jobs
	JobsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsearch_jobs_published_total",
		Help: "The total number of jobs published",
	}, []string{"kind", "result"})

	JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsearch_jobs_processed_total",
		Help: "The total number of job deliveries by outcome",
	}, []string{"kind", "outcome"})

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "marketsearch_job_duration_seconds",
		Help: "The latency of job handlers",
	}, []string{"kind"})

	// Index writer
	IndexUpserts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsearch_index_upserts_total",
		Help: "The total number of index row upserts",
	}, []string{"family", "result"})

	Enhancements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsearch_enhancements_total",
		Help: "The total number of text enhancements, by whether the raw text was used instead",
	}, []string{"outcome"})

	// Query engine
	SearchRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsearch_search_requests_total",
		Help: "The total number of search requests",
	}, []string{"scope", "outcome"})

	SearchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "marketsearch_search_latency_seconds",
		Help: "The latency of search requests",
	}, []string{"scope"})

	HydrationMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsearch_hydration_misses_total",
		Help: "The total number of ranked ids that did not hydrate",
	}, []string{"family"})
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeCanceled    = "canceled"
	OutcomeRetry       = "retry"
	OutcomeDropped     = "dropped"
	OutcomeDeadLetter  = "dead_letter"
	OutcomeApproximate = "approximate"
	OutcomeEnhanced    = "enhanced"
	OutcomeFallback    = "fallback"
)

func init() {
	prometheus.MustRegister(JobsPublished)
	prometheus.MustRegister(JobsProcessed)
	prometheus.MustRegister(JobDuration)
	prometheus.MustRegister(IndexUpserts)
	prometheus.MustRegister(Enhancements)
	prometheus.MustRegister(SearchRequests)
	prometheus.MustRegister(SearchLatency)
	prometheus.MustRegister(HydrationMisses)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to the ok/error label.
func Result(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
