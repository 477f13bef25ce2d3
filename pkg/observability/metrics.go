// Package observability holds the Prometheus metrics and OpenTelemetry spans
// of the outreach service.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

// Namespace prefixes every metric name.
const Namespace = "outreach"

// Metrics holds all Prometheus metrics for recommendations and the HTTP API.
type Metrics struct {
	// Recommendation metrics
	RecommendationsTotal   *prometheus.CounterVec
	SuccessProbability     *prometheus.HistogramVec
	AdjustmentsTotal       *prometheus.CounterVec
	ValidationFailures     *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram

	// Decision recording metrics
	RecordErrorsTotal *prometheus.CounterVec
	DecisionsDropped  prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter
}

// NewMetrics creates and registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RecommendationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "recommendations_total",
				Help:      "Total channel recommendations by chosen channel and effective intent",
			},
			[]string{"channel", "intent", "overridden"},
		),
		SuccessProbability: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "success_probability",
				Help:      "Reported success probability per channel",
				Buckets:   []float64{0.02, 0.05, 0.1, 0.15, 0.2, 0.3, 0.5, 0.7, 0.85, 0.95},
			},
			[]string{"channel"},
		),
		AdjustmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "probability_adjustments_total",
				Help:      "Probability multipliers applied, by kind",
			},
			[]string{"adjustment"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "validation_failures_total",
				Help:      "Requests rejected for missing required fields",
			},
			[]string{"field"},
		),
		RecommendationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "recommendation_duration_seconds",
				Help:      "Time spent evaluating a recommendation",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
		),
		RecordErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "decision_record_errors_total",
				Help:      "Decisions that could not be recorded",
			},
			[]string{"recorder"},
		),
		DecisionsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "decisions_dropped_total",
				Help:      "Decisions dropped because the recording buffer was full",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveEvaluation records a completed evaluation.
func (m *Metrics) ObserveEvaluation(ev engine.Evaluation, elapsed time.Duration) {
	channel := string(ev.Channel)
	m.RecommendationsTotal.WithLabelValues(channel, string(ev.EffectiveIntent), strconv.FormatBool(ev.Overridden)).Inc()
	m.SuccessProbability.WithLabelValues(channel).Observe(ev.SuccessProbability)
	for _, adj := range ev.Adjustments {
		m.AdjustmentsTotal.WithLabelValues(adj.Name).Inc()
	}
	m.RecommendationDuration.Observe(elapsed.Seconds())
}

// ObserveValidationFailure counts one rejection per missing field.
func (m *Metrics) ObserveValidationFailure(fields []string) {
	for _, f := range fields {
		m.ValidationFailures.WithLabelValues(f).Inc()
	}
}

// ObserveRecordError counts a failed decision write.
func (m *Metrics) ObserveRecordError(recorder string, n int) {
	m.RecordErrorsTotal.WithLabelValues(recorder).Add(float64(n))
}

// ObserveHTTPRequest records one handled HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
