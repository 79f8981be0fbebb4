// Package metrics provides Prometheus metrics for the validator.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AssetValidationsTotal counts per-asset validation outcomes.
	AssetValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_asset_validations_total",
			Help: "Total number of per-asset validations by result",
		},
		[]string{"result"},
	)

	// BatchDuration is a histogram of batch validation durations.
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validator_batch_duration_seconds",
			Help:    "Duration of batch validations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// PriceDeviationRatio tracks the last observed deviation of an asset relative to its primary price.
	PriceDeviationRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "validator_price_deviation_ratio",
			Help: "Last observed |primary-reference|/primary per asset",
		},
		[]string{"asset", "symbol"},
	)

	// CollaboratorErrorsTotal counts failed collaborator calls.
	CollaboratorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_collaborator_errors_total",
			Help: "Total number of failed primary, reference and sink calls",
		},
		[]string{"collaborator"},
	)

	// FlagsRaisedTotal counts assets forwarded to the flag sink.
	FlagsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_flags_raised_total",
			Help: "Total number of assets reported to the flag sink",
		},
		[]string{"sink"},
	)

	// UpkeepRunsTotal counts upkeep phases.
	UpkeepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_upkeep_runs_total",
			Help: "Total number of upkeep check/perform phases by status",
		},
		[]string{"phase", "status"},
	)

	// RegistryWritesTotal counts binding registrations by result.
	RegistryWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_registry_writes_total",
			Help: "Total number of binding registrations by result",
		},
		[]string{"result"},
	)

	// OutlierRejectionsTotal counts member prices dropped by median references.
	OutlierRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_outlier_rejections_total",
			Help: "Total number of member reference prices rejected as outliers",
		},
		[]string{"symbol"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

var initOnce sync.Once

// Init registers all metrics with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			AssetValidationsTotal,
			BatchDuration,
			PriceDeviationRatio,
			CollaboratorErrorsTotal,
			FlagsRaisedTotal,
			UpkeepRunsTotal,
			RegistryWritesTotal,
			OutlierRejectionsTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordAssetValidation records the outcome of one asset check ("valid", "invalid", "unregistered").
func RecordAssetValidation(result string) {
	AssetValidationsTotal.WithLabelValues(result).Inc()
}

// RecordBatch records a batch validation.
func RecordBatch(status string, duration time.Duration) {
	BatchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordDeviation records the last deviation ratio for an asset.
func RecordDeviation(asset, symbol string, ratio float64) {
	PriceDeviationRatio.WithLabelValues(asset, symbol).Set(ratio)
}

// RecordCollaboratorError records a failed collaborator call.
func RecordCollaboratorError(collaborator string) {
	CollaboratorErrorsTotal.WithLabelValues(collaborator).Inc()
}

// RecordFlagsRaised records assets forwarded to a sink.
func RecordFlagsRaised(sink string, count int) {
	FlagsRaisedTotal.WithLabelValues(sink).Add(float64(count))
}

// RecordUpkeep records an upkeep phase.
func RecordUpkeep(phase, status string) {
	UpkeepRunsTotal.WithLabelValues(phase, status).Inc()
}

// RecordRegistryWrite records a registration attempt.
func RecordRegistryWrite(result string) {
	RegistryWritesTotal.WithLabelValues(result).Inc()
}

// RecordOutlierRejection records a rejected member price.
func RecordOutlierRejection(symbol string) {
	OutlierRejectionsTotal.WithLabelValues(symbol).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
