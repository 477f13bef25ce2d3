package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
)

// ChannelPerformance holds the static engagement rates of a channel.
type ChannelPerformance struct {
	OpenRate               float64 `json:"open_rate" yaml:"open_rate"`
	ResponseRate           float64 `json:"response_rate" yaml:"response_rate"`
	ConversionRate         float64 `json:"conversion_rate" yaml:"conversion_rate"`
	AvgResponseTimeMinutes float64 `json:"avg_response_time_minutes" yaml:"avg_response_time_minutes"`
}

// IntentRule is the default recommendation for an intent.
type IntentRule struct {
	DefaultChannel  channels.Channel `json:"channel" yaml:"channel"`
	Reason          string           `json:"reason" yaml:"reason"`
	BaseProbability float64          `json:"base_probability" yaml:"base_probability"`
}

// IntentBonus multiplies the probability when an intent is served on a
// specific channel.
type IntentBonus struct {
	Channel    channels.Channel `json:"channel" yaml:"channel"`
	Multiplier float64          `json:"multiplier" yaml:"multiplier"`
}

// Tuning holds the heuristic constants of the engine. The defaults have no
// documented derivation and are kept for behavioral compatibility.
type Tuning struct {
	// OverrideThreshold is the fraction of the current channel's conversion
	// rate the preferred channel must exceed to replace it.
	OverrideThreshold float64 `json:"override_threshold" yaml:"override_threshold"`

	// PreferenceBoost applies when the chosen channel is the customer's
	// empirically preferred one.
	PreferenceBoost float64 `json:"preference_boost" yaml:"preference_boost"`

	// ExplicitPreferenceBonus applies when the caller lists the chosen channel
	// among the customer's explicit preferences.
	ExplicitPreferenceBonus float64 `json:"explicit_preference_bonus" yaml:"explicit_preference_bonus"`

	// ProbabilityCap is the highest success probability ever reported.
	ProbabilityCap float64 `json:"probability_cap" yaml:"probability_cap"`

	// OverrideReason is a fmt template receiving the channel display name.
	OverrideReason string `json:"override_reason" yaml:"override_reason"`

	IntentBonuses map[channels.Intent]IntentBonus `json:"intent_bonuses" yaml:"intent_bonuses"`
}

// Tables bundles the read-only configuration the engine evaluates against.
type Tables struct {
	Performance map[channels.Channel]ChannelPerformance `json:"channels" yaml:"channels"`
	Rules       map[channels.Intent]IntentRule          `json:"intents" yaml:"intents"`
	Tuning      Tuning                                  `json:"tuning" yaml:"tuning"`
}

// Default tuning constants.
const (
	DefaultOverrideThreshold       = 0.8
	DefaultPreferenceBoost         = 1.3
	DefaultExplicitPreferenceBonus = 1.1
	DefaultProbabilityCap          = 0.95
	DefaultOverrideReason          = "Customer engagement history favors %s"
)

// DefaultTables returns the built-in channel performance and intent rule tables.
func DefaultTables() Tables {
	return Tables{
		Performance: map[channels.Channel]ChannelPerformance{
			channels.WhatsApp: {
				OpenRate:               0.98,
				ResponseRate:           0.45,
				ConversionRate:         0.12,
				AvgResponseTimeMinutes: 5,
			},
			channels.Email: {
				OpenRate:               0.22,
				ResponseRate:           0.06,
				ConversionRate:         0.03,
				AvgResponseTimeMinutes: 240,
			},
			channels.InstagramDM: {
				OpenRate:               0.85,
				ResponseRate:           0.25,
				ConversionRate:         0.08,
				AvgResponseTimeMinutes: 30,
			},
		},
		Rules: map[channels.Intent]IntentRule{
			channels.IntentAbandonedCart: {
				DefaultChannel:  channels.WhatsApp,
				Reason:          "Abandoned cart - WhatsApp drives the fastest recovery for time-sensitive offers",
				BaseProbability: 0.78,
			},
			channels.IntentProductView: {
				DefaultChannel:  channels.InstagramDM,
				Reason:          "Product view - Instagram DM keeps the conversation next to the visual catalog",
				BaseProbability: 0.65,
			},
			channels.IntentCheckoutFail: {
				DefaultChannel:  channels.WhatsApp,
				Reason:          "Checkout failure - WhatsApp enables immediate support to rescue the order",
				BaseProbability: 0.82,
			},
			channels.IntentVIPCustomer: {
				DefaultChannel:  channels.WhatsApp,
				Reason:          "VIP customer - WhatsApp offers a personal, premium touch",
				BaseProbability: 0.88,
			},
			channels.IntentHighEngagement: {
				DefaultChannel:  channels.InstagramDM,
				Reason:          "High engagement user - Instagram DM matches their active social behavior",
				BaseProbability: 0.72,
			},
			channels.IntentLowEngagement: {
				DefaultChannel:  channels.Email,
				Reason:          "Low engagement user - Email allows for detailed messaging",
				BaseProbability: 0.85,
			},
		},
		Tuning: DefaultTuning(),
	}
}

// DefaultTuning returns the built-in heuristic constants.
func DefaultTuning() Tuning {
	return Tuning{
		OverrideThreshold:       DefaultOverrideThreshold,
		PreferenceBoost:         DefaultPreferenceBoost,
		ExplicitPreferenceBonus: DefaultExplicitPreferenceBonus,
		ProbabilityCap:          DefaultProbabilityCap,
		OverrideReason:          DefaultOverrideReason,
		IntentBonuses: map[channels.Intent]IntentBonus{
			channels.IntentAbandonedCart: {Channel: channels.WhatsApp, Multiplier: 1.2},
			channels.IntentProductView:   {Channel: channels.InstagramDM, Multiplier: 1.1},
			channels.IntentCheckoutFail:  {Channel: channels.WhatsApp, Multiplier: 1.4},
		},
	}
}

// Clone returns a deep copy so the engine never shares maps with its caller.
func (t Tables) Clone() Tables {
	out := Tables{
		Performance: make(map[channels.Channel]ChannelPerformance, len(t.Performance)),
		Rules:       make(map[channels.Intent]IntentRule, len(t.Rules)),
		Tuning:      t.Tuning,
	}
	for k, v := range t.Performance {
		out.Performance[k] = v
	}
	for k, v := range t.Rules {
		out.Rules[k] = v
	}
	out.Tuning.IntentBonuses = make(map[channels.Intent]IntentBonus, len(t.Tuning.IntentBonuses))
	for k, v := range t.Tuning.IntentBonuses {
		out.Tuning.IntentBonuses[k] = v
	}
	return out
}

// Validate checks that every known channel and intent is covered and that
// all rates and multipliers are in range. Problems are reported together.
func (t Tables) Validate() error {
	var problems []string

	for _, c := range channels.All() {
		perf, ok := t.Performance[c]
		if !ok {
			problems = append(problems, fmt.Sprintf("channel %s: missing performance entry", c))
			continue
		}
		for name, rate := range map[string]float64{
			"open_rate":       perf.OpenRate,
			"response_rate":   perf.ResponseRate,
			"conversion_rate": perf.ConversionRate,
		} {
			if rate < 0 || rate > 1 {
				problems = append(problems, fmt.Sprintf("channel %s: %s %.4f outside [0,1]", c, name, rate))
			}
		}
		if perf.AvgResponseTimeMinutes <= 0 {
			problems = append(problems, fmt.Sprintf("channel %s: avg_response_time_minutes must be positive", c))
		}
	}
	for c := range t.Performance {
		if !c.IsValid() {
			problems = append(problems, fmt.Sprintf("unknown channel %q in performance table", c))
		}
	}

	for _, i := range channels.Intents() {
		rule, ok := t.Rules[i]
		if !ok {
			problems = append(problems, fmt.Sprintf("intent %s: missing rule", i))
			continue
		}
		if !rule.DefaultChannel.IsValid() {
			problems = append(problems, fmt.Sprintf("intent %s: unknown channel %q", i, rule.DefaultChannel))
		}
		if rule.BaseProbability < 0 || rule.BaseProbability > 1 {
			problems = append(problems, fmt.Sprintf("intent %s: base_probability %.4f outside [0,1]", i, rule.BaseProbability))
		}
		if strings.TrimSpace(rule.Reason) == "" {
			problems = append(problems, fmt.Sprintf("intent %s: empty reason", i))
		}
	}
	for i := range t.Rules {
		if !i.IsRecognized() {
			problems = append(problems, fmt.Sprintf("unknown intent %q in rule table", i))
		}
	}

	tu := t.Tuning
	if tu.OverrideThreshold < 0 {
		problems = append(problems, "tuning: override_threshold must not be negative")
	}
	if tu.PreferenceBoost <= 0 {
		problems = append(problems, "tuning: preference_boost must be positive")
	}
	if tu.ExplicitPreferenceBonus <= 0 {
		problems = append(problems, "tuning: explicit_preference_bonus must be positive")
	}
	if tu.ProbabilityCap <= 0 || tu.ProbabilityCap > 1 {
		problems = append(problems, "tuning: probability_cap must be within (0,1]")
	}
	if !strings.Contains(tu.OverrideReason, "%s") {
		problems = append(problems, "tuning: override_reason must contain %s")
	}
	for i, b := range tu.IntentBonuses {
		if !i.IsRecognized() {
			problems = append(problems, fmt.Sprintf("tuning: intent bonus for unknown intent %q", i))
		}
		if !b.Channel.IsValid() {
			problems = append(problems, fmt.Sprintf("tuning: intent bonus %s has unknown channel %q", i, b.Channel))
		}
		if b.Multiplier <= 0 {
			problems = append(problems, fmt.Sprintf("tuning: intent bonus %s multiplier must be positive", i))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, errors.New(p))
	}
	return fmt.Errorf("%w: %w", oerrors.ErrInvalidConfig, errors.Join(errs...))
}
