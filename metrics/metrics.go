// Package metrics provides Prometheus collectors for the TB dose API:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - dose_calculations_total: Counter with source and outcome labels
//   - dose_weight_band_total: Counter of calculations per resolved weight band
//   - drug_table_checks_total: Counter of drift checks by result
//   - drug_table_drugs: Gauge of drugs in the loaded table
//
// All metrics are registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculation outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeInvalidWeight = "invalid_weight"
	OutcomeUnknownDrug   = "unknown_drug"
)

// Drift check results
const (
	CheckUnchanged = "unchanged"
	CheckDrift     = "drift"
	CheckFailed    = "failed"
	CheckSkipped   = "skipped"
)

// noBand labels calculations whose weight falls outside every band
const noBand = "none"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	DoseCalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dose_calculations_total",
			Help: "Dose calculation requests by entry point and outcome",
		},
		[]string{"source", "outcome"},
	)

	WeightBandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dose_weight_band_total",
			Help: "Successful calculations by resolved weight band",
		},
		[]string{"band"},
	)

	TableChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drug_table_checks_total",
			Help: "Drug table drift checks by result",
		},
		[]string{"result"},
	)

	TableDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drug_table_drugs",
			Help: "Number of drugs in the loaded table",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DoseCalculationsTotal)
	prometheus.MustRegister(WeightBandTotal)
	prometheus.MustRegister(TableChecksTotal)
	prometheus.MustRegister(TableDrugs)
}

// Handler serves the default registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCalculation counts one calculation request. band is only used on success;
// an empty band is recorded as "none".
func RecordCalculation(source, outcome, band string) {
	DoseCalculationsTotal.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	if band == "" {
		band = noBand
	}
	WeightBandTotal.WithLabelValues(band).Inc()
}

// RecordTableCheck counts one drift check
func RecordTableCheck(result string) {
	TableChecksTotal.WithLabelValues(result).Inc()
}
