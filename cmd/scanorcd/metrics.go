package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// prometheusRegistry returns a fresh registry rather than the global
// DefaultRegisterer, so repeated test construction of the daemon never
// panics on a duplicate collector registration.
func prometheusRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// withMetricsEndpoint mounts /metrics alongside the controller's own
// routes, since internal/controller has no notion of a scrape endpoint of
// its own.
func withMetricsEndpoint(reg *prometheus.Registry, next http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", next)
	return mux
}
