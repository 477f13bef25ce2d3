package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

type recommendOptions struct {
	customer  string
	intent    string
	history   []string
	prefer    []string
	explain   bool
	rulesFile string
	output    string
}

// NewRecommendCommand creates the 'recommend' command.
func NewRecommendCommand(deps *Deps) *cobra.Command {
	opts := &recommendOptions{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a channel for one message",
		Long: `Recommend the outbound channel for a single customer message.

Runs the same engine as the HTTP service, locally and without recording the
decision.

History entries are channel names, optionally with a count:
  --history whatsapp,email,whatsapp
  --history whatsapp:10,email:2

Unknown channels in the history are ignored. An unrecognized intent falls
back to the low engagement rule.`,
		Example: `  outreach recommend --customer c1 --intent checkout_fail
  outreach recommend --customer c2 --intent abandoned_cart --history whatsapp:10
  outreach recommend --customer c3 --intent product_view --prefer instagram_dm --explain -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd.OutOrStdout(), deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.customer, "customer", "", "Customer identifier (required)")
	cmd.Flags().StringVar(&opts.intent, "intent", "", "Message intent, e.g. checkout_fail (required)")
	cmd.Flags().StringSliceVar(&opts.history, "history", nil, "Past interactions as channel or channel:count")
	cmd.Flags().StringSliceVar(&opts.prefer, "prefer", nil, "Explicitly preferred channels")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show the full decision trace")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "Rules file (overrides rules_file from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runRecommend(out io.Writer, deps *Deps, opts *recommendOptions) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	format, err := resolveFormat(opts.output, cfg)
	if err != nil {
		return err
	}

	history, err := parseHistory(opts.history)
	if err != nil {
		return err
	}

	rulesFile := cfg.RulesFile
	if opts.rulesFile != "" {
		rulesFile = opts.rulesFile
	}
	eng, err := loadEngine(rulesFile)
	if err != nil {
		return err
	}

	ev, err := eng.Evaluate(engine.Request{
		CustomerID:          opts.customer,
		MessageIntent:       opts.intent,
		PastInteractions:    history,
		ExplicitPreferences: opts.prefer,
	})
	if err != nil {
		return fmt.Errorf("recommending channel: %w", err)
	}

	if !opts.explain {
		return writeOutput(out, format, ev.Recommendation, func(w io.Writer) error {
			return writeRecommendationText(w, ev.Recommendation)
		})
	}
	return writeOutput(out, format, ev, func(w io.Writer) error {
		return writeEvaluationText(w, ev)
	})
}

// parseHistory expands "channel" and "channel:count" entries.
func parseHistory(entries []string) ([]engine.Interaction, error) {
	var out []engine.Interaction
	for _, entry := range entries {
		name, countStr, hasCount := strings.Cut(strings.TrimSpace(entry), ":")
		count := 1
		if hasCount {
			n, err := strconv.Atoi(countStr)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid history entry %q: count must be a non-negative integer", entry)
			}
			count = n
		}
		for i := 0; i < count; i++ {
			out = append(out, engine.Interaction{Channel: name})
		}
	}
	return out, nil
}

func writeRecommendationText(w io.Writer, rec engine.Recommendation) error {
	fmt.Fprintf(w, "Channel:             %s\n", rec.Channel.DisplayName())
	fmt.Fprintf(w, "Reason:              %s\n", rec.Reason)
	fmt.Fprintf(w, "Success probability: %s\n", percent(rec.SuccessProbability))
	return nil
}

func writeEvaluationText(w io.Writer, ev engine.Evaluation) error {
	if err := writeRecommendationText(w, ev.Recommendation); err != nil {
		return err
	}

	intent := string(ev.Intent)
	if ev.EffectiveIntent != ev.Intent {
		intent = fmt.Sprintf("%s (rule: %s)", ev.Intent, ev.EffectiveIntent)
	}
	preferred := "-"
	if ev.Profile.HasPreference() {
		preferred = ev.Profile.PreferredChannel.DisplayName()
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Intent:              %s\n", intent)
	fmt.Fprintf(w, "Segment:             %s (%d interactions)\n", humanize(string(ev.Profile.Segment)), ev.Profile.TotalEngagement)
	fmt.Fprintf(w, "Preferred channel:   %s\n", preferred)
	fmt.Fprintf(w, "Rule channel:        %s\n", ev.BaseChannel.DisplayName())
	fmt.Fprintf(w, "Overridden:          %s\n", yesNo(ev.Overridden))
	if ev.Profile.TotalEngagement > 0 {
		fmt.Fprintln(w, "History:")
		for _, c := range channels.All() {
			fmt.Fprintf(w, "  %-14s %d\n", c.DisplayName(), ev.Profile.Counts[c])
		}
	}
	if len(ev.Adjustments) > 0 {
		fmt.Fprintln(w, "Adjustments:")
		for _, adj := range ev.Adjustments {
			fmt.Fprintf(w, "  %-20s x%.2f\n", adj.Name, adj.Factor)
		}
	}
	if ev.Capped {
		fmt.Fprintln(w, "Probability was capped.")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
