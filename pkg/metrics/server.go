package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsServer returns an HTTP server exposing m and the Go runtime metrics on /metrics.
func NewMetricsServer(address string, m *Metrics) *http.Server {
	return &http.Server{Addr: address, Handler: Handler(NewRegistry(m))}
}

// NewRegistry creates a dedicated registry holding the process and Go collectors and m.
func NewRegistry(m *Metrics) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	m.Register(registry)
	return registry
}

// Handler serves the metrics gathered by registry.
func Handler(registry *prometheus.Registry) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry: registry,
	})).Methods(http.MethodGet)
	return router
}
