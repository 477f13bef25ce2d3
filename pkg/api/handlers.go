package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otherjamesbrown/penf-outreach/pkg/decisions"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
	"github.com/otherjamesbrown/penf-outreach/pkg/observability"
)

// ExplainResponse is the body of the explain endpoint.
type ExplainResponse struct {
	engine.Recommendation
	Trace engine.Evaluation `json:"trace"`
}

func (s *Server) handleSelectChannel(c *gin.Context) {
	ev, ok := s.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ev.Recommendation)
}

func (s *Server) handleExplain(c *gin.Context) {
	ev, ok := s.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ExplainResponse{Recommendation: ev.Recommendation, Trace: ev})
}

// evaluate binds the request, runs the engine and records the decision. It
// writes the error reply itself and returns false on failure.
func (s *Server) evaluate(c *gin.Context) (engine.Evaluation, bool) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.deps.Logger.WithContext(c.Request.Context()).Warn("Invalid request body", logging.Err(err))
		abortWithCode(c, oerrors.CodeInvalidRequest)
		return engine.Evaluation{}, false
	}

	ctx, span := s.deps.Tracer.StartRecommendSpan(c.Request.Context(), req)
	defer span.End()
	if traceID := observability.GetTraceID(ctx); traceID != "" {
		ctx = logging.ContextWithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
	}

	start := time.Now()
	ev, err := s.deps.Engine.Evaluate(req)
	elapsed := time.Since(start)

	if err != nil {
		observability.SetError(span, err)
		var verr *oerrors.ValidationError
		if errors.As(err, &verr) {
			s.deps.Metrics.ObserveValidationFailure(verr.Fields)
		}
		code := oerrors.Classify(err)
		if code == oerrors.CodeInternalError {
			s.deps.Logger.WithContext(ctx).Error("Channel selection failed", logging.Err(err))
		}
		abortWithCode(c, code)
		return engine.Evaluation{}, false
	}

	observability.SetEvaluation(span, ev)
	s.deps.Metrics.ObserveEvaluation(ev, elapsed)
	s.record(ctx, c.GetString(requestIDKey), req, ev)
	return ev, true
}

// record hands the decision to the recorder. Failures are logged and counted.
func (s *Server) record(ctx context.Context, requestID string, req engine.Request, ev engine.Evaluation) {
	if s.deps.Recorder == nil {
		return
	}
	d := decisions.FromEvaluation(req, ev, requestID, s.deps.Now())

	ctx, span := s.deps.Tracer.StartRecordSpan(ctx, fmt.Sprintf("%T", s.deps.Recorder))
	defer span.End()

	if err := s.deps.Recorder.Record(ctx, d); err != nil {
		observability.SetError(span, err)
		s.deps.Metrics.ObserveRecordError("http", 1)
		s.deps.Logger.WithContext(ctx).Warn("Failed to record decision",
			logging.Err(err),
			logging.F("decision_id", d.ID.String()))
	}
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp, healthy := RunChecks(c.Request.Context(), s.deps.Checks)
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// RunChecks evaluates every check with a short timeout each.
func RunChecks(ctx context.Context, checks map[string]HealthCheck) (HealthResponse, bool) {
	resp := HealthResponse{Status: "ok"}
	if len(checks) == 0 {
		return resp, true
	}

	healthy := true
	resp.Checks = make(map[string]string, len(checks))
	for name, check := range checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			healthy = false
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	if !healthy {
		resp.Status = "degraded"
	}
	return resp, healthy
}
