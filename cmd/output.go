package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/penf-outreach/config"
)

// resolveFormat picks the --output flag over the configured default.
func resolveFormat(flag string, cfg *config.Config) (config.OutputFormat, error) {
	format := config.DefaultOutputFormat
	if cfg != nil {
		format = cfg.OutputFormat
	}
	if flag != "" {
		format = config.OutputFormat(flag)
	}
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format %q (must be text, json, or yaml)", format)
	}
	return format, nil
}

// writeOutput renders v as JSON or YAML, or calls text for text output.
func writeOutput(w io.Writer, format config.OutputFormat, v any, text func(io.Writer) error) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

// humanize turns a snake_case label into title case.
func humanize(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// percent formats a probability for display.
func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// truncate shortens s to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
