package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/bundle"
)

func newBundleCmd(e *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Package module directories into a single file",
	}

	var out string
	build := &cobra.Command{
		Use:   "build",
		Short: "Assemble modules, core and shared into a bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bundle.Build(e.Fs, e.ToolRoot)
			if err != nil {
				return err
			}
			if len(b.Files) == 0 {
				return fmt.Errorf("no module files found under %s", e.ToolRoot)
			}

			path := out
			if path == "" {
				path = filepath.Join(e.ToolRoot, branding.BundleFile())
			}
			if err := bundle.WriteFile(e.Fs, path, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d files)\n", path, len(b.Files))
			return nil
		},
	}
	build.Flags().StringVarP(&out, "out", "o", "", "Output path (default <root>/"+branding.BundleFile()+")")
	cmd.AddCommand(build)
	return cmd
}
