package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

// NewRulesCommand creates the 'rules' command with its subcommands.
func NewRulesCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate channel rules",
		Long: `Inspect and validate the rule tables the engine runs with.

The tables hold per-channel performance, per-intent rules and tuning
multipliers. A rules file may override any part of them; everything it
omits keeps the built-in value.`,
	}

	cmd.AddCommand(newRulesShowCommand(deps))
	cmd.AddCommand(newRulesValidateCommand())

	return cmd
}

func newRulesShowCommand(deps *Deps) *cobra.Command {
	var (
		file   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective rule tables",
		Long: `Show the rule tables after applying the configured rules file.

Text output is a summary. Use -o yaml to get a complete rules file that
can be edited and passed back with rules_file.`,
		Example: `  outreach rules show
  outreach rules show --file ./rules.yaml -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			format, err := resolveFormat(output, cfg)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.RulesFile
			}
			eng, err := loadEngine(file)
			if err != nil {
				return err
			}
			return writeTables(cmd.OutOrStdout(), format, eng.Tables())
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Rules file (overrides rules_file from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func newRulesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rules file",
		Long: `Validate a rules file against the rules schema and the table invariants.

Exits non-zero and lists every problem when the file is invalid.`,
		Example: `  outreach rules validate ./rules.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadEngine(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return nil
		},
	}
}

func writeTables(w io.Writer, format config.OutputFormat, t engine.Tables) error {
	if format == config.OutputFormatYAML {
		data, err := engine.MarshalTablesYAML(t)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return writeOutput(w, format, t, func(w io.Writer) error {
		return writeTablesText(w, t)
	})
}

func writeTablesText(w io.Writer, t engine.Tables) error {
	fmt.Fprintln(w, "Channels:")
	fmt.Fprintf(w, "  %-14s %8s %8s %10s %9s\n", "CHANNEL", "OPEN", "RESPONSE", "CONVERSION", "RESP_MIN")
	for _, c := range channels.All() {
		p := t.Performance[c]
		fmt.Fprintf(w, "  %-14s %8s %8s %10s %9.0f\n",
			c.DisplayName(), percent(p.OpenRate), percent(p.ResponseRate), percent(p.ConversionRate), p.AvgResponseTimeMinutes)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Intents:")
	fmt.Fprintf(w, "  %-16s %-14s %6s  %s\n", "INTENT", "CHANNEL", "BASE", "REASON")
	for _, i := range channels.Intents() {
		r := t.Rules[i]
		fmt.Fprintf(w, "  %-16s %-14s %6s  %s\n",
			i, r.DefaultChannel.DisplayName(), percent(r.BaseProbability), truncate(r.Reason, 60))
	}

	tu := t.Tuning
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tuning:")
	fmt.Fprintf(w, "  override_threshold:        %.2f\n", tu.OverrideThreshold)
	fmt.Fprintf(w, "  preference_boost:          %.2f\n", tu.PreferenceBoost)
	fmt.Fprintf(w, "  explicit_preference_bonus: %.2f\n", tu.ExplicitPreferenceBonus)
	fmt.Fprintf(w, "  probability_cap:           %.2f\n", tu.ProbabilityCap)

	if len(tu.IntentBonuses) > 0 {
		intents := make([]string, 0, len(tu.IntentBonuses))
		for i := range tu.IntentBonuses {
			intents = append(intents, string(i))
		}
		sort.Strings(intents)
		fmt.Fprintln(w, "  intent_bonuses:")
		for _, i := range intents {
			b := tu.IntentBonuses[channels.Intent(i)]
			fmt.Fprintf(w, "    %-16s %s x%.2f\n", i, b.Channel.DisplayName(), b.Multiplier)
		}
	}
	return nil
}
