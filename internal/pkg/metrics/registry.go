package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database/Repository Metrics
var (
	// DBOperations tracks total store operations
	DBOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_db_operations_total",
			Help: "Total store operations by repository, operation, and status",
		},
		[]string{"repo", "operation", "status"},
	)

	// DBDuration tracks store operation latency
	DBDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "bnetsso_db_operation_duration_ms",
			Help:                            "Store operation duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"repo", "operation"},
	)

	// DBRowsAffected tracks rows affected by write operations
	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "bnetsso_db_rows_affected",
			Help:                            "Number of rows affected by store write operations",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"repo", "operation"},
	)

	// DBErrors tracks store errors by type
	DBErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_db_errors_total",
			Help: "Total store errors by repository, operation, and error type",
		},
		[]string{"repo", "operation", "error_type"},
	)
)

// Service Layer Metrics
var (
	// ServiceOperations tracks service-level operations
	ServiceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_service_operations_total",
			Help: "Total service operations by service, method, and status",
		},
		[]string{"service", "method", "status"},
	)

	// ServiceDuration tracks service operation latency
	ServiceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "bnetsso_service_operation_duration_ms",
			Help:                            "Service operation duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"service", "method"},
	)

	// LoginOutcomes counts resolved logins by outcome (new, existing, linked, error)
	LoginOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_login_outcomes_total",
			Help: "Total Battle.net logins by resolution outcome",
		},
		[]string{"outcome"},
	)

	// ValidationFailures counts interstitial validation failures by reason
	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_registration_validation_failures_total",
			Help: "Total registration validation failures by reason",
		},
		[]string{"reason"},
	)
)

// HTTP/Web Handler Metrics
var (
	// HTTPRequests tracks HTTP requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "bnetsso_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "path"},
	)

	// HTTPActiveRequests tracks active HTTP requests
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bnetsso_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)
)

// Battle.net API Metrics
var (
	// BattleNetAPICalls tracks outbound Battle.net API calls
	BattleNetAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_battlenet_api_calls_total",
			Help: "Total Battle.net API calls by method, endpoint, and status code",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// BattleNetAPIDuration tracks Battle.net API latency
	BattleNetAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "bnetsso_battlenet_api_duration_ms",
			Help:                            "Battle.net API call duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "endpoint"},
	)

	// BattleNetAPIErrors tracks Battle.net API errors
	BattleNetAPIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bnetsso_battlenet_api_errors_total",
			Help: "Total Battle.net API errors by endpoint and error type",
		},
		[]string{"endpoint", "error_type"},
	)
)
