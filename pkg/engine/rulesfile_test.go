package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
)

func TestParseTables_EmptyYieldsDefaults(t *testing.T) {
	for _, input := range []string{"", "\n", "{}"} {
		tables, err := ParseTables([]byte(input))
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, DefaultTables(), tables)
	}
}

func TestParseTables_PartialOverlay(t *testing.T) {
	data := []byte(`
channels:
  email:
    conversion_rate: 0.2
intents:
  low_engagement:
    channel: whatsapp
    reason: Quiet customers answer quick messages
    base_probability: 0.5
tuning:
  override_threshold: 0.5
`)

	tables, err := ParseTables(data)
	require.NoError(t, err)

	email := tables.Performance[channels.Email]
	assert.Equal(t, 0.2, email.ConversionRate)
	assert.Equal(t, 0.22, email.OpenRate, "unspecified fields keep defaults")
	assert.Equal(t, 240.0, email.AvgResponseTimeMinutes)

	assert.Equal(t, channels.WhatsApp, tables.Rules[channels.IntentLowEngagement].DefaultChannel)
	assert.Equal(t, DefaultTables().Rules[channels.IntentCheckoutFail], tables.Rules[channels.IntentCheckoutFail])

	assert.Equal(t, 0.5, tables.Tuning.OverrideThreshold)
	assert.Equal(t, DefaultPreferenceBoost, tables.Tuning.PreferenceBoost)
	assert.Len(t, tables.Tuning.IntentBonuses, 3)
}

func TestParseTables_ReplacesIntentBonuses(t *testing.T) {
	data := []byte(`
tuning:
  intent_bonuses:
    vip_customer:
      channel: whatsapp
      multiplier: 1.5
`)
	tables, err := ParseTables(data)
	require.NoError(t, err)

	assert.Equal(t, map[channels.Intent]IntentBonus{
		channels.IntentVIPCustomer: {Channel: channels.WhatsApp, Multiplier: 1.5},
	}, tables.Tuning.IntentBonuses)
}

func TestParseTables_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown top-level key", "channel_weights: {}\n"},
		{"unknown channel", "channels:\n  sms:\n    conversion_rate: 0.1\n"},
		{"rate out of range", "channels:\n  email:\n    conversion_rate: 1.4\n"},
		{"rule missing reason", "intents:\n  vip_customer:\n    channel: email\n    base_probability: 0.5\n"},
		{"unknown intent", "intents:\n  birthday:\n    channel: email\n    reason: x\n    base_probability: 0.5\n"},
		{"cap above one", "tuning:\n  probability_cap: 2\n"},
		{"reason without verb", "tuning:\n  override_reason: fixed text\n"},
		{"not yaml", "channels: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTables([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, oerrors.IsInvalidConfig(err), "got %v", err)
		})
	}
}

func TestMarshalTablesYAML_RoundTrip(t *testing.T) {
	orig := DefaultTables()
	orig.Tuning.OverrideThreshold = 0.7

	data, err := MarshalTablesYAML(orig)
	require.NoError(t, err)

	parsed, err := ParseTables(data)
	require.NoError(t, err)
	assert.Equal(t, orig, parsed)
}

func TestLoadTablesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tuning:\n  preference_boost: 1.5\n"), 0o600))

	tables, err := LoadTablesFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, tables.Tuning.PreferenceBoost)

	_, err = LoadTablesFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
