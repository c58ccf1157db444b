package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/catalog"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/config"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/download"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/installer"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/prompt"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/render"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/state"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

func newPkgCmd(e *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkg",
		Short: "Install and manage packages",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check package bookkeeping",
	}
	validate.AddCommand(newPkgValidateStateCmd(e))

	cmd.AddCommand(
		newPkgInstallCmd(e),
		newPkgRemoveCmd(e),
		newPkgListCmd(e),
		newPkgInfoCmd(e),
		newPkgSearchCmd(e),
		validate,
	)
	return cmd
}

// newInstallCmd is the top-level shorthand for "pkg install".
func newInstallCmd(e *Env) *cobra.Command {
	cmd := newPkgInstallCmd(e)
	cmd.Short = "Install a package (shorthand for pkg install)"
	return cmd
}

func loadCatalog(e *Env) (*catalog.Catalog, error) {
	return catalog.Load(e.Fs, userdata.CatalogPath(e.ToolRoot))
}

func openState(e *Env) (*state.Store, error) {
	path, err := userdata.StatePath(e.Mode, e.ProjectRoot)
	if err != nil {
		return nil, err
	}
	return state.Open(e.Fs, path)
}

// newInstaller wires the package workflow for the current mode.
func newInstaller(e *Env, cmd *cobra.Command, assumeYes bool) (*installer.Installer, error) {
	cat, err := loadCatalog(e)
	if err != nil {
		return nil, err
	}
	st, err := openState(e)
	if err != nil {
		return nil, err
	}
	root, err := userdata.InstallRoot(e.Mode, e.ProjectRoot)
	if err != nil {
		return nil, err
	}
	envPath, err := userdata.EnvPath(e.Mode, e.ProjectRoot)
	if err != nil {
		return nil, err
	}
	env, err := userdata.ReadEnvFile(envPath)
	if err != nil {
		return nil, err
	}

	fetcher := e.Fetcher
	if fetcher == nil {
		cacheDir, err := userdata.GetCacheDir()
		if err != nil {
			return nil, err
		}
		d := download.New(cacheDir, config.DownloadRetries(), config.DownloadTimeout())
		d.Fs = e.Fs
		d.Progress = cmd.ErrOrStderr()
		fetcher = d
	}

	p := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout())
	p.AssumeYes = assumeYes

	return &installer.Installer{
		Fs:      e.Fs,
		Catalog: cat,
		Fetcher: fetcher,
		State:   st,
		Root:    root,
		EnvPath: envPath,
		Prompt:  p,
		Out:     cmd.OutOrStdout(),
		Vars: render.Merge(map[string]string{
			"INSTALL_ROOT": root,
			"TOOL_ROOT":    e.ToolRoot,
		}, env),
	}, nil
}

func newPkgInstallCmd(e *Env) *cobra.Command {
	var force, yes bool
	cmd := &cobra.Command{
		Use:   "install <name>",
		Short: "Download and install a package from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := newInstaller(e, cmd, yes)
			if err != nil {
				return err
			}
			_, err = inst.Install(cmd.Context(), args[0], installer.Options{Force: force})
			if errors.Is(err, installer.ErrCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing installed.")
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinstall without asking")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Answer yes to every question")
	return cmd
}

func newPkgRemoveCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an installed package and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openState(e)
			if err != nil {
				return err
			}
			root, err := userdata.InstallRoot(e.Mode, e.ProjectRoot)
			if err != nil {
				return err
			}
			envPath, err := userdata.EnvPath(e.Mode, e.ProjectRoot)
			if err != nil {
				return err
			}
			inst := &installer.Installer{Fs: e.Fs, State: st, Root: root, EnvPath: envPath, Out: cmd.OutOrStdout()}
			return inst.Remove(args[0])
		},
	}
}

// pkgEntry is one row of "pkg list".
type pkgEntry struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Latest    string `json:"latest,omitempty"`
	Files     int    `json:"files"`
	Installed string `json:"installed_at"`
}

func newPkgListCmd(e *Env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openState(e)
			if err != nil {
				return err
			}
			// The catalog only adds upgrade hints.
			cat, _ := loadCatalog(e)

			var entries []pkgEntry
			for _, rec := range st.LoadAll() {
				entry := pkgEntry{
					Name:      rec.Name,
					Version:   rec.Version,
					Files:     len(rec.Files),
					Installed: rec.InstalledAt.Format("2006-01-02 15:04"),
				}
				if cat != nil {
					if p, err := cat.Get(rec.Name); err == nil && catalog.IsUpgrade(rec.Version, p.Version) {
						entry.Latest = p.Version
					}
				}
				entries = append(entries, entry)
			}

			if asJSON {
				if entries == nil {
					entries = []pkgEntry{}
				}
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packages installed yet.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tFILES\tINSTALLED")
			for _, en := range entries {
				version := orDash(en.Version)
				if en.Latest != "" {
					version += " (" + en.Latest + " available)"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", en.Name, version, en.Files, en.Installed)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newPkgInfoCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show catalog details of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(e)
			if err != nil {
				return err
			}
			p, err := cat.Get(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", p.Name)
			fmt.Fprintf(out, "Version:     %s\n", orDash(p.Version))
			fmt.Fprintf(out, "Description: %s\n", orDash(p.Description))
			fmt.Fprintf(out, "URL:         %s\n", p.URL)
			if len(p.Tags) > 0 {
				fmt.Fprintf(out, "Tags:        %s\n", strings.Join(p.Tags, ", "))
			}
			if len(p.Rules) > 0 {
				fmt.Fprintln(out, "Rules:")
				for _, r := range p.Rules {
					fmt.Fprintf(out, "  %s\n", r)
				}
			}

			status := "not installed"
			if st, err := openState(e); err == nil {
				if rec, ok := st.Get(p.Name); ok && rec.Installed {
					status = "installed " + orDash(rec.Version)
				}
			}
			fmt.Fprintf(out, "Status:      %s\n", status)
			return nil
		},
	}
}

func newPkgSearchCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search the package catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(e)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			matches := cat.Search(query)
			if len(matches) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No packages match %q.\n", query)
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
			for _, m := range matches {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Package.Name, orDash(m.Package.Version), m.Package.Description)
			}
			return w.Flush()
		},
	}
}

func newPkgValidateStateCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Check that every recorded file still exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openState(e)
			if err != nil {
				return err
			}
			root, err := userdata.InstallRoot(e.Mode, e.ProjectRoot)
			if err != nil {
				return err
			}
			inst := &installer.Installer{Fs: e.Fs, State: st, Root: root}

			problems := inst.Validate()
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintf(out, "State is consistent (%d packages).\n", len(st.LoadAll()))
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(out, "%s: %d missing file(s)\n", p.Package, len(p.Missing))
				for _, f := range p.Missing {
					fmt.Fprintf(out, "  %s\n", f)
				}
			}
			return fmt.Errorf("%d package(s) have missing files; reinstall with --force", len(problems))
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
