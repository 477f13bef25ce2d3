package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-outreach/pkg/db"
)

// NewMigrateCommand creates the 'migrate' command.
func NewMigrateCommand(deps *Deps) *cobra.Command {
	var (
		target string
		status bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply decision store migrations",
		Long: `Apply the decision store schema migrations embedded in the binary.

Migrations are applied in version order, each in its own transaction, and
tracked in the schema_migrations table. A failed migration is rolled back
and no further migrations are attempted.

Flags:
  --status   Show applied and pending migrations without applying anything
  --target   Apply migrations up to and including this version (e.g., 001)`,
		Example: `  outreach migrate
  outreach migrate --status
  outreach migrate --target 001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.loadConfigWithSecrets()
			if err != nil {
				return err
			}
			pool, err := deps.connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			out := cmd.OutOrStdout()
			if status {
				format, err := resolveFormat(output, cfg)
				if err != nil {
					return err
				}
				st, err := db.GetMigrationStatus(cmd.Context(), pool, db.Migrations())
				if err != nil {
					return fmt.Errorf("getting migration status: %w", err)
				}
				return writeOutput(out, format, st, func(w io.Writer) error {
					return writeMigrationStatusText(w, st)
				})
			}

			result, err := db.RunMigrationsToTarget(cmd.Context(), pool, db.Migrations(), target)
			writeMigrationResult(out, result)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Apply migrations up to this version")
	cmd.Flags().BoolVar(&status, "status", false, "Show migration status only")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format for --status: text, json, yaml")

	return cmd
}

func writeMigrationResult(w io.Writer, result *db.MigrationResult) {
	if result == nil {
		return
	}
	if len(result.Applied) == 0 {
		fmt.Fprintln(w, "No pending migrations.")
	} else {
		fmt.Fprintf(w, "Applied %d migration(s):\n", len(result.Applied))
		for _, v := range result.Applied {
			fmt.Fprintf(w, "  ✓ %s\n", v)
		}
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d migration(s) (already applied).\n", len(result.Skipped))
	}
}

func writeMigrationStatusText(w io.Writer, status *db.MigrationStatus) error {
	if len(status.Applied) == 0 && len(status.Pending) == 0 && len(status.Drift) == 0 {
		fmt.Fprintln(w, "No migrations found.")
		return nil
	}

	section := func(title string, entries []db.MigrationStatusEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(w, "%s (%d):\n", title, len(entries))
		for _, m := range entries {
			applied := "-"
			if m.AppliedAt != nil {
				applied = m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "  %-8s %-40s %s\n", m.Version, truncate(m.Name, 40), applied)
		}
		fmt.Fprintln(w)
	}
	section("Applied", status.Applied)
	section("Pending", status.Pending)
	section("Drift - applied but file missing", status.Drift)

	fmt.Fprintf(w, "Summary: %d applied, %d pending", len(status.Applied), len(status.Pending))
	if len(status.Drift) > 0 {
		fmt.Fprintf(w, ", %d drift", len(status.Drift))
	}
	fmt.Fprintln(w)
	return nil
}
