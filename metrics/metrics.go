package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PageViewsTotal counts successful GET page views per route template.
	PageViewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lostfound",
		Subsystem: "http",
		Name:      "page_views_total",
		Help:      "Successful GET page views by route.",
	}, []string{"route"})

	// ReportsCreatedTotal counts report submissions by kind and outcome.
	ReportsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lostfound",
		Subsystem: "board",
		Name:      "reports_created_total",
		Help:      "Report submissions by kind and outcome (ok, persist_error, error).",
	}, []string{"kind", "outcome"})

	// SearchesTotal counts non-empty search queries.
	SearchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lostfound",
		Subsystem: "board",
		Name:      "searches_total",
		Help:      "Search queries that reached the store.",
	})
)

// Register registers board metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PageViewsTotal,
			ReportsCreatedTotal,
			SearchesTotal,
		)
	})
}
