package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-outreach/credentials"
)

// NewSecretsCommand creates the 'secrets' command with its subcommands.
func NewSecretsCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage backing store passwords",
		Long: fmt.Sprintf(`Manage the passwords used for the decision store backends.

Passwords are never written to the config file. They are read from
OUTREACH_<NAME>_PASSWORD first, then from the system keyring.

Known secrets: %s`, strings.Join(credentials.Names(), ", ")),
	}

	cmd.AddCommand(newSecretsSetCommand(deps))
	cmd.AddCommand(newSecretsDeleteCommand(deps))

	return cmd
}

func newSecretsSetCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a password in the system keyring",
		Long: `Store a password in the system keyring.

The password is prompted for without echo. When stdin is not a terminal the
first line of stdin is used, so it can be piped in.`,
		Example: `  outreach secrets set postgres
  printf '%s\n' "$PGPASS" | outreach secrets set postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := credentials.ValidateName(name); err != nil {
				return err
			}
			value, err := deps.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("%s password: ", name))
			if err != nil {
				return err
			}
			if value == "" {
				return fmt.Errorf("no password provided")
			}
			if err := deps.Secrets.Set(name, value); err != nil {
				return fmt.Errorf("storing %s password: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s password.\n", name)
			return nil
		},
	}
}

func newSecretsDeleteCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a password from the system keyring",
		Example: `  outreach secrets delete redis`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Secrets.Delete(args[0]); err != nil {
				return fmt.Errorf("deleting %s password: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s password.\n", args[0])
			return nil
		},
	}
}
