// Package metrics exposes Prometheus counters and gauges for the
// daemon's two background loops and its scan lifecycle, replacing the
// teacher's SQLite-backed observability package — inappropriate here
// since this daemon carries no durable storage at all (spec's Non-goals).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every series this daemon publishes. Construct one with
// NewMetrics and register it against a *prometheus.Registry at wiring
// time in cmd/scanorcd.
type Metrics struct {
	ScansTotal        *prometheus.CounterVec
	ScansActive       prometheus.Gauge
	PollDuration      prometheus.Histogram
	PollErrorsTotal   prometheus.Counter
	ResultsAppended   prometheus.Counter
	FeedVersionChange prometheus.Counter
	FeedOIDCount      prometheus.Gauge
}

// NewMetrics registers every series against reg and returns the bundle.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanorc",
			Name:      "scans_total",
			Help:      "Scans by terminal phase.",
		}, []string{"phase"}),
		ScansActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "scanorc",
			Name:      "scans_active",
			Help:      "Scans currently in Requested or Running phase.",
		}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scanorc",
			Name:      "poll_duration_seconds",
			Help:      "Wall time for one Result Poller pass over all live scans.",
			Buckets:   prometheus.DefBuckets,
		}),
		PollErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "scanorc",
			Name:      "poll_errors_total",
			Help:      "Scanner backend errors observed by the Result Poller.",
		}),
		ResultsAppended: f.NewCounter(prometheus.CounterOpts{
			Namespace: "scanorc",
			Name:      "results_appended_total",
			Help:      "Results appended to the store across all scans.",
		}),
		FeedVersionChange: f.NewCounter(prometheus.CounterOpts{
			Namespace: "scanorc",
			Name:      "feed_version_changes_total",
			Help:      "Feed refreshes that observed a new version.",
		}),
		FeedOIDCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "scanorc",
			Name:      "feed_oid_count",
			Help:      "OIDs in the most recently loaded feed snapshot.",
		}),
	}
}
