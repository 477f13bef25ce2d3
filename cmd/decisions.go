package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/pkg/decisions"
)

// decisionLister abstracts PostgresStore for tests.
type decisionLister interface {
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]decisions.Decision, error)
}

// NewDecisionsCommand creates the 'decisions' command with its subcommands.
func NewDecisionsCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Query recorded channel decisions",
		Long: `Query channel decisions recorded by the service.

Decisions are stored when the postgres sink is enabled under recorder.sinks.
The password is read from OUTREACH_POSTGRES_PASSWORD or the system keyring
(see 'outreach secrets set postgres').`,
	}

	cmd.AddCommand(newDecisionsListCommand(deps))
	return cmd
}

func newDecisionsListCommand(deps *Deps) *cobra.Command {
	var (
		customer string
		limit    int
		output   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent decisions for a customer",
		Example: `  outreach decisions list --customer c1
  outreach decisions list --customer c1 --limit 5 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if customer == "" {
				return fmt.Errorf("--customer is required")
			}
			cfg, err := deps.loadConfigWithSecrets()
			if err != nil {
				return err
			}
			format, err := resolveFormat(output, cfg)
			if err != nil {
				return err
			}

			pool, err := deps.connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return listDecisions(cmd.Context(), cmd.OutOrStdout(), decisions.NewPostgresStore(pool), customer, limit, format)
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "", "Customer identifier (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of decisions")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func listDecisions(ctx context.Context, out io.Writer, store decisionLister, customer string, limit int, format config.OutputFormat) error {
	list, err := store.ListByCustomer(ctx, customer, limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []decisions.Decision{}
	}
	return writeOutput(out, format, list, func(w io.Writer) error {
		return writeDecisionsText(w, customer, list)
	})
}

func writeDecisionsText(w io.Writer, customer string, list []decisions.Decision) error {
	if len(list) == 0 {
		fmt.Fprintf(w, "No decisions recorded for %s.\n", customer)
		return nil
	}

	fmt.Fprintf(w, "%-20s %-16s %-14s %7s %-10s %s\n", "DECIDED", "INTENT", "CHANNEL", "PROB", "OVERRIDE", "REASON")
	for _, d := range list {
		fmt.Fprintf(w, "%-20s %-16s %-14s %7s %-10s %s\n",
			d.Timestamp.Format("2006-01-02 15:04:05"),
			truncate(string(d.EffectiveIntent), 16),
			d.Channel.DisplayName(),
			percent(d.SuccessProbability),
			yesNo(d.Overridden),
			truncate(d.Reason, 50))
	}
	fmt.Fprintf(w, "\n%d decision(s)\n", len(list))
	return nil
}
