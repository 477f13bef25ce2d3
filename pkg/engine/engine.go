// Package engine selects the outbound channel for a customer message.
//
// The engine is a pure function of its request and the Tables it was built
// with: it performs no I/O, holds no mutable state and is safe for concurrent
// use. Logging and auditing of decisions belong to the caller.
package engine

import (
	"fmt"
	"strings"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
)

// Request is the input of a single recommendation.
type Request struct {
	CustomerID          string        `json:"customerId"`
	MessageIntent       string        `json:"messageType"`
	PastInteractions    []Interaction `json:"previousEngagement,omitempty"`
	ExplicitPreferences []string      `json:"preferredChannels,omitempty"`
}

// Recommendation is the engine's answer.
type Recommendation struct {
	Channel            channels.Channel `json:"channel" yaml:"channel"`
	Reason             string           `json:"reason" yaml:"reason"`
	SuccessProbability float64          `json:"successProbability" yaml:"success_probability"`
}

// Adjustment is one multiplier applied to the success probability.
type Adjustment struct {
	Name   string  `json:"name" yaml:"name"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// Adjustment names.
const (
	AdjustmentPreferenceBoost    = "preference_boost"
	AdjustmentIntentBonus        = "intent_bonus"
	AdjustmentExplicitPreference = "explicit_preference"
)

// Evaluation is a Recommendation together with the intermediate values that
// produced it.
type Evaluation struct {
	Recommendation `yaml:",inline"`

	Profile         Profile          `json:"profile" yaml:"profile"`
	Intent          channels.Intent  `json:"intent" yaml:"intent"`
	EffectiveIntent channels.Intent  `json:"effective_intent" yaml:"effective_intent"`
	BaseChannel     channels.Channel `json:"base_channel" yaml:"base_channel"`
	Overridden      bool             `json:"overridden" yaml:"overridden"`
	Adjustments     []Adjustment     `json:"adjustments,omitempty" yaml:"adjustments,omitempty"`
	// Capped is true when the probability was reduced to the configured cap.
	Capped bool `json:"capped" yaml:"capped"`
}

// Engine evaluates requests against a fixed set of tables.
type Engine struct {
	tables Tables
}

// New validates and copies the tables into a new Engine.
func New(tables Tables) (*Engine, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Engine{tables: tables.Clone()}, nil
}

// NewDefault returns an Engine over DefaultTables.
func NewDefault() *Engine {
	e, err := New(DefaultTables())
	if err != nil {
		panic(fmt.Sprintf("engine: default tables invalid: %v", err))
	}
	return e
}

// Tables returns a copy of the tables the engine evaluates against.
func (e *Engine) Tables() Tables {
	return e.tables.Clone()
}

// Recommend returns the channel, reason and success probability for req.
// It fails only with a *errors.ValidationError when CustomerID or
// MessageIntent is empty.
func (e *Engine) Recommend(req Request) (Recommendation, error) {
	ev, err := e.Evaluate(req)
	if err != nil {
		return Recommendation{}, err
	}
	return ev.Recommendation, nil
}

// Evaluate is Recommend with the full decision trace.
func (e *Engine) Evaluate(req Request) (Evaluation, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return Evaluation{}, oerrors.NewValidationError(missing...)
	}

	intent := channels.ParseIntent(req.MessageIntent)
	effective := intent.Fallback()
	profile := AnalyzeBehavior(req.PastInteractions)
	rule := e.tables.Rules[effective]

	ev := Evaluation{
		Profile:         profile,
		Intent:          intent,
		EffectiveIntent: effective,
		BaseChannel:     rule.DefaultChannel,
	}

	channel, reason := rule.DefaultChannel, rule.Reason
	if profile.HasPreference() && profile.PreferredChannel != channel {
		preferred := e.tables.Performance[profile.PreferredChannel]
		current := e.tables.Performance[channel]
		if preferred.ConversionRate > current.ConversionRate*e.tables.Tuning.OverrideThreshold {
			channel = profile.PreferredChannel
			reason = fmt.Sprintf(e.tables.Tuning.OverrideReason, channel.DisplayName())
			ev.Overridden = true
		}
	}

	ev.Adjustments = e.adjustments(channel, intent, profile, req.ExplicitPreferences)

	probability := rule.BaseProbability
	if ev.Overridden || len(ev.Adjustments) > 0 {
		probability = e.tables.Performance[channel].ConversionRate
		for _, adj := range ev.Adjustments {
			probability *= adj.Factor
		}
	}
	probability, ev.Capped = clamp(probability, e.tables.Tuning.ProbabilityCap)

	ev.Recommendation = Recommendation{
		Channel:            channel,
		Reason:             reason,
		SuccessProbability: probability,
	}
	return ev, nil
}

// adjustments lists the multipliers that apply to channel, in a fixed order.
func (e *Engine) adjustments(channel channels.Channel, intent channels.Intent, profile Profile, explicit []string) []Adjustment {
	tu := e.tables.Tuning
	var out []Adjustment

	if profile.HasPreference() && channel == profile.PreferredChannel {
		out = append(out, Adjustment{Name: AdjustmentPreferenceBoost, Factor: tu.PreferenceBoost})
	}
	if bonus, ok := tu.IntentBonuses[intent]; ok && bonus.Channel == channel {
		out = append(out, Adjustment{Name: AdjustmentIntentBonus, Factor: bonus.Multiplier})
	}
	if containsChannel(explicit, channel) {
		out = append(out, Adjustment{Name: AdjustmentExplicitPreference, Factor: tu.ExplicitPreferenceBonus})
	}
	return out
}

func (r Request) missingFields() []string {
	var missing []string
	if strings.TrimSpace(r.CustomerID) == "" {
		missing = append(missing, "customerId")
	}
	if strings.TrimSpace(r.MessageIntent) == "" {
		missing = append(missing, "messageType")
	}
	return missing
}

func containsChannel(values []string, channel channels.Channel) bool {
	for _, v := range values {
		if c, ok := channels.ParseChannel(v); ok && c == channel {
			return true
		}
	}
	return false
}

func clamp(p, ceiling float64) (float64, bool) {
	if p < 0 {
		return 0, false
	}
	if p > ceiling {
		return ceiling, true
	}
	return p, false
}
