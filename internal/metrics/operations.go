package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas de operaciones y motores externos
var (
	// OperationsTotal operaciones terminadas por tipo y resultado (success, INVALID_INPUT, ...)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kavach_operations_total",
			Help: "Total number of document operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// OperationDurationSeconds duración de cada operación
	OperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kavach_operation_duration_seconds",
			Help:    "Document operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"operation"},
	)

	// EngineAttemptsTotal intentos por candidato de cada cadena
	EngineAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kavach_engine_attempts_total",
			Help: "External engine attempts by operation, tool and outcome",
		},
		[]string{"operation", "tool", "outcome"},
	)

	// EngineDurationSeconds duración de cada intento
	EngineDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kavach_engine_duration_seconds",
			Help:    "External engine attempt duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"operation", "tool"},
	)

	// JanitorRemovedTotal artefactos eliminados por la retención
	JanitorRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kavach_janitor_removed_total",
			Help: "Files removed by the retention janitor by reason (age, size)",
		},
		[]string{"reason"},
	)

	// ArtifactBytes bytes ocupados en el directorio de salida tras cada barrido
	ArtifactBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kavach_artifact_bytes",
			Help: "Bytes retained in the artifact output directory",
		},
	)

	// BreakerState estado del circuit breaker por dependencia (0 closed, 1 open, 2 half-open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kavach_circuit_breaker_state",
			Help: "Circuit breaker state by dependency (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)
