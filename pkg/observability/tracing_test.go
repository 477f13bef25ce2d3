package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

func newRecordingTracer() (*Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewTracerWithProvider(tp), sr
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

func TestTracer_RecommendSpan(t *testing.T) {
	tracer, sr := newRecordingTracer()

	req := engine.Request{CustomerID: "c1", MessageIntent: "checkout_fail"}
	ctx, span := tracer.StartRecommendSpan(context.Background(), req)
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace id from the SDK provider")
	}
	SetEvaluation(span, evaluate(t, req))
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != SpanRecommend {
		t.Errorf("span name = %s, want %s", s.Name(), SpanRecommend)
	}
	attrs := attrMap(s.Attributes())
	if attrs[AttrCustomerID].AsString() != "c1" {
		t.Errorf("customer_id = %v", attrs[AttrCustomerID])
	}
	if attrs[AttrChannel].AsString() != "whatsapp" {
		t.Errorf("channel = %v", attrs[AttrChannel])
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
	if len(s.Events()) != 1 {
		t.Errorf("expected 1 adjustment event, got %d", len(s.Events()))
	}
}

func TestTracer_RecordSpanError(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, span := tracer.StartRecordSpan(context.Background(), "kafka")
	SetError(span, errors.New("broker down"))
	span.End()

	s := sr.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if attrMap(s.Attributes())[AttrRecorder].AsString() != "kafka" {
		t.Error("recorder attribute missing")
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
}
