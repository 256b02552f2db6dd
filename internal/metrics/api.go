package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API metrics - Métricas de la API HTTP
var (
	// HTTPRequestsTotal contador total de requests HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kavach_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDurationSeconds histograma de duración de requests
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kavach_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "route"},
	)

	// HTTPActiveRequests gauge de requests activos
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kavach_http_active_requests",
			Help: "Number of currently active HTTP requests",
		},
	)

	// AuthFailuresTotal contador de fallos de autenticación
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kavach_auth_failures_total",
			Help: "Total number of authentication failures by reason",
		},
		[]string{"reason"},
	)
)
