// Package metrics registers the portal's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handled HTTP requests by method, route and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	// RequestDuration observes request latency by method and route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ApplicationsSubmitted counts submissions per application family.
	ApplicationsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_applications_submitted_total",
		Help: "Total number of submitted applications by family.",
	}, []string{"family"})

	// DocumentsServed counts document downloads per application family.
	DocumentsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_documents_served_total",
		Help: "Total number of document downloads by family.",
	}, []string{"family"})
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
