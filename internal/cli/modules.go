package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
)

// moduleEntry is one row of "modules".
type moduleEntry struct {
	Command  string `json:"command"`
	Kind     string `json:"kind"`
	Tier     string `json:"tier"`
	Module   string `json:"module"`
	Synopsis string `json:"synopsis,omitempty"`
}

func newModulesCmd(e *Env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List discovered commands and the module behind each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.Registry == nil {
				return fmt.Errorf("command registry is not available")
			}

			var entries []moduleEntry
			for _, name := range e.Registry.Names() {
				d, _ := e.Registry.Lookup(name)
				entries = append(entries, moduleEntry{
					Command:  name,
					Kind:     d.Kind.String(),
					Tier:     d.Tier.String(),
					Module:   e.Registry.LoadedModules[name],
					Synopsis: d.Synopsis,
				})
			}

			if asJSON {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tKIND\tTIER\tMODULE")
			for _, en := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", en.Command, en.Kind, en.Tier, en.Module)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			writeRejections(cmd, e.Registry)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func writeRejections(cmd *cobra.Command, reg *registry.Registry) {
	// A module declaring several commands is recorded once per command.
	seen := make(map[string]bool)
	var rejections []*registry.Rejection
	for _, name := range sortedKeys(reg.Rejected) {
		rej := reg.Rejected[name]
		if seen[rej.Module] {
			continue
		}
		seen[rej.Module] = true
		rejections = append(rejections, rej)
	}
	if len(rejections) == 0 {
		return
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Rejected modules:")
	for _, rej := range rejections {
		fmt.Fprintf(out, "  %s (%s): %v\n", rej.Module, rej.Tier, rej.Err)
	}
}
