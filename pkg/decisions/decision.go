// Package decisions records channel recommendations after they are made.
//
// Recorders are observability collaborators: the engine never sees them and a
// failing recorder never changes the recommendation returned to a caller.
package decisions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

// EventType identifies decision events on the wire.
const EventType = "channel_decision.selected"

// Decision is the audit record of one recommendation.
type Decision struct {
	ID                 uuid.UUID                `json:"id" yaml:"id"`
	RequestID          string                   `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	CustomerID         string                   `json:"customer_id" yaml:"customer_id"`
	MessageType        string                   `json:"message_type" yaml:"message_type"`
	EffectiveIntent    channels.Intent          `json:"effective_intent" yaml:"effective_intent"`
	Channel            channels.Channel         `json:"channel" yaml:"channel"`
	BaseChannel        channels.Channel         `json:"base_channel" yaml:"base_channel"`
	Reason             string                   `json:"reason" yaml:"reason"`
	SuccessProbability float64                  `json:"success_probability" yaml:"success_probability"`
	Overridden         bool                     `json:"overridden" yaml:"overridden"`
	Adjustments        []engine.Adjustment      `json:"adjustments,omitempty" yaml:"adjustments,omitempty"`
	Counts             map[channels.Channel]int `json:"counts" yaml:"counts"`
	TotalEngagement    int                      `json:"total_engagement" yaml:"total_engagement"`
	PreferredChannel   channels.Channel         `json:"preferred_channel,omitempty" yaml:"preferred_channel,omitempty"`
	Segment            channels.Segment         `json:"segment" yaml:"segment"`
	Timestamp          time.Time                `json:"timestamp" yaml:"timestamp"`
}

// FromEvaluation builds a Decision for req and its evaluation.
func FromEvaluation(req engine.Request, ev engine.Evaluation, requestID string, at time.Time) Decision {
	return Decision{
		ID:                 uuid.New(),
		RequestID:          requestID,
		CustomerID:         req.CustomerID,
		MessageType:        req.MessageIntent,
		EffectiveIntent:    ev.EffectiveIntent,
		Channel:            ev.Channel,
		BaseChannel:        ev.BaseChannel,
		Reason:             ev.Reason,
		SuccessProbability: ev.SuccessProbability,
		Overridden:         ev.Overridden,
		Adjustments:        ev.Adjustments,
		Counts:             ev.Profile.Counts,
		TotalEngagement:    ev.Profile.TotalEngagement,
		PreferredChannel:   ev.Profile.PreferredChannel,
		Segment:            ev.Profile.Segment,
		Timestamp:          at.UTC(),
	}
}

// Recorder persists or publishes a single decision.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
}

// BatchWriter persists several decisions at once.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch []Decision) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, d Decision) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, d Decision) error {
	return f(ctx, d)
}

// Multi fans a decision out to every recorder. All recorders are called even
// when one fails; the errors are joined.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, d Decision) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch hands batch to every recorder, in batch form when supported.
func (m Multi) WriteBatch(ctx context.Context, batch []Decision) error {
	var errs []error
	for _, r := range m {
		if err := Batch(r).WriteBatch(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Batch adapts a Recorder to BatchWriter. Recorders that already implement
// BatchWriter are returned unchanged.
func Batch(r Recorder) BatchWriter {
	if bw, ok := r.(BatchWriter); ok {
		return bw
	}
	return batchAdapter{r}
}

type batchAdapter struct {
	r Recorder
}

func (b batchAdapter) WriteBatch(ctx context.Context, batch []Decision) error {
	var errs []error
	for _, d := range batch {
		if err := b.r.Record(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
