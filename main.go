// Package main provides the outreach entry point.
// outreach picks the outbound messaging channel most likely to convert for
// a customer and message intent, either as an HTTP service or from the CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/penf-outreach/cmd"
	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/pkg/buildinfo"
)

// Global flags.
var (
	cfgFile  string
	logLevel string

	versionOutput string
	configForce   bool
)

// loadConfig loads configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Outreach channel selection service and CLI",
	Long: `outreach recommends the outbound channel (whatsapp, email or
instagram_dm) most likely to convert for a customer and message intent.

It blends per-segment conversion rates with the customer's engagement
history and declared channel preferences, and explains every decision.

COMMON WORKFLOWS:
  Run the service:     outreach serve
  Try a decision:      outreach recommend --customer c-1 --intent checkout_fail --explain
  Inspect the rules:   outreach rules show  |  outreach rules validate ./rules.yaml
  Decision history:    outreach decisions list --customer c-1
  Database:            outreach migrate  |  outreach secrets set postgres

Most commands support --output json|yaml for structured data.`,
	SilenceUsage: true,
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of outreach.

Examples:
  outreach version
  outreach version --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), buildinfo.Get("outreach"), versionOutput)
	},
}

func writeVersion(out io.Writer, info buildinfo.Info, format string) error {
	switch config.OutputFormat(format) {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case config.OutputFormatYAML:
		return yaml.NewEncoder(out).Encode(info)
	case "", config.OutputFormatText:
		fmt.Fprintf(out, "outreach version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		return nil
	default:
		return fmt.Errorf("invalid output format %q (must be text, json, or yaml)", format)
	}
}

// configCmd manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and create the outreach configuration file.

Values are read from defaults, then the config file
(~/.outreach/config.yaml or --config), then OUTREACH_* environment
variables. Passwords are never stored in the file: use 'outreach secrets'.`,
}

// configShowCmd displays the effective configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// configInitCmd writes a default configuration file.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a configuration file with default values if one doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		return initConfigFile(cmd.OutOrStdout(), path, configForce)
	},
}

func initConfigFile(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	data, err := config.DefaultConfig().Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "Configuration written to %s\n", path)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.outreach/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "Output format: text, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd, configInitCmd)

	deps := cmd.DefaultDeps(loadConfig)
	rootCmd.AddCommand(
		cmd.NewServeCommand(deps),
		cmd.NewRecommendCommand(deps),
		cmd.NewRulesCommand(deps),
		cmd.NewDecisionsCommand(deps),
		cmd.NewMigrateCommand(deps),
		cmd.NewSecretsCommand(deps),
		configCmd,
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
