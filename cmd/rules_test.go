package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

func TestRulesCommand_HasSubcommands(t *testing.T) {
	deps, _ := testDeps(nil)
	cmd := NewRulesCommand(deps)

	assert.Equal(t, "rules", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["show"], "rules should have 'show' subcommand")
	assert.True(t, names["validate"], "rules should have 'validate' subcommand")
}

func executeRules(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	cmd := NewRulesCommand(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRulesShow_Text(t *testing.T) {
	deps, _ := testDeps(nil)
	out, err := executeRules(t, deps, "show")
	require.NoError(t, err)

	assert.Contains(t, out, "Channels:")
	assert.Contains(t, out, "Instagram DM")
	assert.Contains(t, out, "checkout_fail")
	assert.Contains(t, out, "override_threshold:        0.80")
	assert.Contains(t, out, "intent_bonuses:")
}

func TestRulesShow_YAMLRoundTrips(t *testing.T) {
	deps, _ := testDeps(nil)
	out, err := executeRules(t, deps, "show", "-o", "yaml")
	require.NoError(t, err)

	tables, err := engine.ParseTables([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultTables(), tables)
}

func TestRulesShow_JSONUsesConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tuning:\n  preference_boost: 1.5\n"), 0o600))

	deps, _ := testDeps(func(cfg *config.Config) { cfg.RulesFile = path })
	out, err := executeRules(t, deps, "show", "-o", "json")
	require.NoError(t, err)

	var tables engine.Tables
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Equal(t, 1.5, tables.Tuning.PreferenceBoost)
}

func TestRulesValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("channels:\n  email:\n    conversion_rate: 0.2\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("tuning:\n  probability_cap: 2\n"), 0o600))

	deps, _ := testDeps(nil)

	out, err := executeRules(t, deps, "validate", good)
	require.NoError(t, err)
	assert.Equal(t, good+": valid\n", out)

	_, err = executeRules(t, deps, "validate", bad)
	assert.Error(t, err)

	_, err = executeRules(t, deps, "validate")
	assert.Error(t, err, "validate requires a file argument")
}
