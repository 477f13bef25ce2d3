package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-outreach/pkg/db"
)

func TestMigrateCommand_Flags(t *testing.T) {
	deps, _ := testDeps(nil)
	cmd := NewMigrateCommand(deps)

	assert.Equal(t, "migrate", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	status := cmd.Flags().Lookup("status")
	require.NotNil(t, status)
	assert.Equal(t, "bool", status.Value.Type())
	assert.NotNil(t, cmd.Flags().Lookup("target"))
}

func TestMigrateCommand_ConnectFailure(t *testing.T) {
	deps, _ := testDeps(nil)
	cmd := NewMigrateCommand(deps)
	cmd.SetArgs([]string{"--status"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.ErrorIs(t, cmd.Execute(), errNoDatabase)
}

func TestWriteMigrationResult(t *testing.T) {
	var out bytes.Buffer
	writeMigrationResult(&out, nil)
	assert.Empty(t, out.String())

	writeMigrationResult(&out, &db.MigrationResult{})
	assert.Equal(t, "No pending migrations.\n", out.String())

	out.Reset()
	writeMigrationResult(&out, &db.MigrationResult{Applied: []string{"001"}, Skipped: []string{"000"}})
	assert.Contains(t, out.String(), "Applied 1 migration(s):")
	assert.Contains(t, out.String(), "001")
	assert.Contains(t, out.String(), "Skipped 1 migration(s)")
}

func TestWriteMigrationStatusText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeMigrationStatusText(&out, &db.MigrationStatus{}))
	assert.Equal(t, "No migrations found.\n", out.String())

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	out.Reset()
	require.NoError(t, writeMigrationStatusText(&out, &db.MigrationStatus{
		Applied: []db.MigrationStatusEntry{{Version: "001", Name: "001_channel_decisions.sql", AppliedAt: &at}},
		Pending: []db.MigrationStatusEntry{{Version: "002", Name: "002_next.sql"}},
		Drift:   []db.MigrationStatusEntry{{Version: "009", Name: "009_gone.sql", AppliedAt: &at}},
	}))

	s := out.String()
	assert.Contains(t, s, "Applied (1):")
	assert.Contains(t, s, "2026-03-01 09:30:00")
	assert.Contains(t, s, "Pending (1):")
	assert.Contains(t, s, "Drift - applied but file missing (1):")
	assert.Contains(t, s, "Summary: 1 applied, 1 pending, 1 drift")
}
