package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

func projectEnvPath(e *Env) string {
	return filepath.Join(e.ProjectRoot, userdata.EnvFile)
}

func newEnvCmd(e *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the project .env file",
	}

	var noRedact bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show all variables (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := userdata.ParseEnvFile(projectEnvPath(e))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No variables set.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for _, en := range entries {
				value := en.Value
				if !noRedact {
					value = userdata.RedactValue(en.Key, value)
				}
				fmt.Fprintf(w, "%s\t%s\n", en.Key, value)
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&noRedact, "no-redact", false, "Show values without redaction")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := userdata.ReadEnvFile(projectEnvPath(e))
			if err != nil {
				return err
			}
			value, ok := vars[args[0]]
			if !ok {
				return fmt.Errorf("%s is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := userdata.MergeEnvFile(projectEnvPath(e), map[string]string{args[0]: args[1]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		},
	}

	unset := &cobra.Command{
		Use:   "unset <key>...",
		Short: "Remove variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := userdata.RemoveEnvKeys(projectEnvPath(e), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d variable(s)\n", len(args))
			return nil
		},
	}

	cmd.AddCommand(list, get, set, unset)
	return cmd
}
