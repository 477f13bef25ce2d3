package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

func evaluate(t *testing.T, req engine.Request) engine.Evaluation {
	t.Helper()
	ev, err := engine.NewDefault().Evaluate(req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return ev
}

func TestMetrics_ObserveEvaluation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	ev := evaluate(t, engine.Request{
		CustomerID:       "c1",
		MessageIntent:    "low_engagement",
		PastInteractions: []engine.Interaction{{Channel: "instagram_dm"}},
	})
	m.ObserveEvaluation(ev, 120*time.Microsecond)

	if got := testutil.ToFloat64(m.RecommendationsTotal.WithLabelValues("instagram_dm", "low_engagement", "true")); got != 1 {
		t.Errorf("recommendations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AdjustmentsTotal.WithLabelValues(engine.AdjustmentPreferenceBoost)); got != 1 {
		t.Errorf("preference_boost adjustments = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.SuccessProbability); got != 1 {
		t.Errorf("success_probability series = %d, want 1", got)
	}
}

func TestMetrics_ObserveValidationFailure(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveValidationFailure([]string{"customerId", "messageType"})
	m.ObserveValidationFailure([]string{"customerId"})

	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("customerId")); got != 2 {
		t.Errorf("customerId failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("messageType")); got != 1 {
		t.Errorf("messageType failures = %v, want 1", got)
	}
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveEvaluation(evaluate(t, engine.Request{CustomerID: "c", MessageIntent: "vip_customer"}), time.Millisecond)
	m.ObserveValidationFailure([]string{"customerId"})
	m.ObserveRecordError("postgres", 3)
	m.DecisionsDropped.Inc()
	m.ObserveHTTPRequest("POST", "/api/ai-auto-messages/select-channel", 200, 2*time.Millisecond)
	m.RateLimitedTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expected := map[string]bool{
		"outreach_recommendations_total":          false,
		"outreach_success_probability":            false,
		"outreach_validation_failures_total":      false,
		"outreach_recommendation_duration_seconds": false,
		"outreach_decision_record_errors_total":   false,
		"outreach_decisions_dropped_total":        false,
		"outreach_http_requests_total":            false,
		"outreach_http_request_duration_seconds":  false,
		"outreach_rate_limited_total":             false,
	}
	for _, fam := range families {
		if _, ok := expected[fam.GetName()]; ok {
			expected[fam.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("Metric %s not found in registry", name)
		}
	}

	if got := testutil.ToFloat64(m.RecordErrorsTotal.WithLabelValues("postgres")); got != 3 {
		t.Errorf("record errors = %v, want 3", got)
	}
}

func TestNewMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering metrics twice on one registry")
		}
	}()
	NewMetrics(reg)
}
