package decisions

import (
	"context"

	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
)

// LogRecorder writes each decision as a structured log line.
type LogRecorder struct {
	logger logging.Logger
}

// NewLogRecorder returns a LogRecorder writing to logger.
func NewLogRecorder(logger logging.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.With(logging.F("component", "decision_log"))}
}

// Record implements Recorder. It never fails.
func (r *LogRecorder) Record(ctx context.Context, d Decision) error {
	r.logger.WithContext(ctx).Info("Channel selected",
		logging.F("decision_id", d.ID.String()),
		logging.F("customer_id", d.CustomerID),
		logging.F("message_type", d.MessageType),
		logging.F("effective_intent", string(d.EffectiveIntent)),
		logging.F("channel", string(d.Channel)),
		logging.F("reason", d.Reason),
		logging.F("success_probability", d.SuccessProbability),
		logging.F("overridden", d.Overridden),
		logging.F("total_engagement", d.TotalEngagement),
		logging.F("preferred_channel", string(d.PreferredChannel)),
		logging.F("segment", string(d.Segment)),
		logging.F("decided_at", d.Timestamp),
	)
	return nil
}
