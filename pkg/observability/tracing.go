package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

// TracerName is the instrumentation name of outreach spans.
const TracerName = "outreach"

// Span names
const (
	SpanRecommend = "outreach.recommend"
	SpanRecord    = "outreach.record_decision"
)

// Span attribute keys
const (
	AttrCustomerID      = "customer_id"
	AttrMessageType     = "message_type"
	AttrEffectiveIntent = "effective_intent"
	AttrChannel         = "channel"
	AttrBaseChannel     = "base_channel"
	AttrOverridden      = "overridden"
	AttrProbability     = "success_probability"
	AttrTotalEngagement = "total_engagement"
	AttrRecorder        = "recorder"
)

// Tracer starts outreach spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer on the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerWithProvider returns a Tracer on tp.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// NewTracerProvider creates an SDK provider that samples every trace and
// installs it globally. Spans carry real trace ids for log correlation; no
// exporter is attached unless opts add one.
func NewTracerProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.AlwaysSample())}, opts...)
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}

// StartRecommendSpan starts the span around one evaluation.
func (t *Tracer) StartRecommendSpan(ctx context.Context, req engine.Request) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanRecommend,
		trace.WithAttributes(
			attribute.String(AttrCustomerID, req.CustomerID),
			attribute.String(AttrMessageType, req.MessageIntent),
		),
	)
}

// StartRecordSpan starts the span around recording a decision.
func (t *Tracer) StartRecordSpan(ctx context.Context, recorder string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanRecord,
		trace.WithAttributes(attribute.String(AttrRecorder, recorder)),
	)
}

// SetEvaluation annotates span with the outcome of an evaluation.
func SetEvaluation(span trace.Span, ev engine.Evaluation) {
	span.SetAttributes(
		attribute.String(AttrEffectiveIntent, string(ev.EffectiveIntent)),
		attribute.String(AttrChannel, string(ev.Channel)),
		attribute.String(AttrBaseChannel, string(ev.BaseChannel)),
		attribute.Bool(AttrOverridden, ev.Overridden),
		attribute.Float64(AttrProbability, ev.SuccessProbability),
		attribute.Int(AttrTotalEngagement, ev.Profile.TotalEngagement),
	)
	for _, adj := range ev.Adjustments {
		span.AddEvent("adjustment", trace.WithAttributes(
			attribute.String("name", adj.Name),
			attribute.Float64("factor", adj.Factor),
		))
	}
	span.SetStatus(codes.Ok, "")
}

// SetError records err on span.
func SetError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
