package engine

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
)

//go:embed schema/rules.schema.json
var rulesSchema string

// rulesFile is the on-disk form of Tables. Every section is optional;
// omitted entries keep their default values.
type rulesFile struct {
	Channels map[channels.Channel]performanceEntry `yaml:"channels,omitempty"`
	Intents  map[channels.Intent]IntentRule        `yaml:"intents,omitempty"`
	Tuning   *tuningEntry                          `yaml:"tuning,omitempty"`
}

type performanceEntry struct {
	OpenRate               *float64 `yaml:"open_rate,omitempty"`
	ResponseRate           *float64 `yaml:"response_rate,omitempty"`
	ConversionRate         *float64 `yaml:"conversion_rate,omitempty"`
	AvgResponseTimeMinutes *float64 `yaml:"avg_response_time_minutes,omitempty"`
}

type tuningEntry struct {
	OverrideThreshold       *float64                        `yaml:"override_threshold,omitempty"`
	PreferenceBoost         *float64                        `yaml:"preference_boost,omitempty"`
	ExplicitPreferenceBonus *float64                        `yaml:"explicit_preference_bonus,omitempty"`
	ProbabilityCap          *float64                        `yaml:"probability_cap,omitempty"`
	OverrideReason          string                          `yaml:"override_reason,omitempty"`
	IntentBonuses           map[channels.Intent]IntentBonus `yaml:"intent_bonuses,omitempty"`
}

// LoadTablesFile reads a YAML rules file and overlays it onto DefaultTables.
func LoadTablesFile(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("reading rules file: %w", err)
	}
	tables, err := ParseTables(data)
	if err != nil {
		return Tables{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return tables, nil
}

// ParseTables validates YAML rules against the embedded JSON schema, overlays
// them onto DefaultTables and validates the result.
func ParseTables(data []byte) (Tables, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tables{}, fmt.Errorf("%w: parsing yaml: %v", oerrors.ErrInvalidConfig, err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(rulesSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return Tables{}, fmt.Errorf("%w: schema validation: %v", oerrors.ErrInvalidConfig, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Tables{}, fmt.Errorf("%w: %s", oerrors.ErrInvalidConfig, strings.Join(msgs, "; "))
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Tables{}, fmt.Errorf("%w: decoding rules: %v", oerrors.ErrInvalidConfig, err)
	}

	tables := file.overlay(DefaultTables())
	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

func (f rulesFile) overlay(t Tables) Tables {
	for c, entry := range f.Channels {
		perf := t.Performance[c]
		setFloat(&perf.OpenRate, entry.OpenRate)
		setFloat(&perf.ResponseRate, entry.ResponseRate)
		setFloat(&perf.ConversionRate, entry.ConversionRate)
		setFloat(&perf.AvgResponseTimeMinutes, entry.AvgResponseTimeMinutes)
		t.Performance[c] = perf
	}
	for i, rule := range f.Intents {
		t.Rules[i] = rule
	}
	if f.Tuning != nil {
		tu := &t.Tuning
		setFloat(&tu.OverrideThreshold, f.Tuning.OverrideThreshold)
		setFloat(&tu.PreferenceBoost, f.Tuning.PreferenceBoost)
		setFloat(&tu.ExplicitPreferenceBonus, f.Tuning.ExplicitPreferenceBonus)
		setFloat(&tu.ProbabilityCap, f.Tuning.ProbabilityCap)
		if f.Tuning.OverrideReason != "" {
			tu.OverrideReason = f.Tuning.OverrideReason
		}
		if f.Tuning.IntentBonuses != nil {
			tu.IntentBonuses = f.Tuning.IntentBonuses
		}
	}
	return t
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// MarshalTablesYAML renders tables in the rules file format.
func MarshalTablesYAML(t Tables) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshaling rules: %w", err)
	}
	return data, nil
}
