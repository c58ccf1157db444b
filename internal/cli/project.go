package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/prompt"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/scaffold"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

func newInitCmd(e *Env) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up the current directory as a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			created, err := scaffold.Prepare(e.Fs, e.ProjectRoot)
			if err != nil {
				return err
			}
			ignored, err := userdata.EnsureGitignore(e.ProjectRoot, userdata.GitignoreEntries())
			if err != nil {
				return err
			}
			for _, p := range created {
				fmt.Fprintf(out, "  created  %s\n", p)
			}
			for _, p := range ignored {
				fmt.Fprintf(out, "  ignored  %s\n", p)
			}

			res, err := generate(e, cmd, name, false)
			if err != nil {
				return err
			}
			writeGenerated(out, res)
			fmt.Fprintf(out, "Project ready in %s\n", e.ProjectRoot)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: directory name)")
	return cmd
}

func newGenerateCmd(e *Env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Re-render project files from the templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := generate(e, cmd, "", yes)
			if err != nil {
				return err
			}
			writeGenerated(cmd.OutOrStdout(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d updated, %d unchanged, %d skipped\n",
				res.Count(scaffold.Created), res.Count(scaffold.Updated),
				res.Count(scaffold.Unchanged), res.Count(scaffold.Skipped))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Overwrite changed files without asking")
	return cmd
}

func generate(e *Env, cmd *cobra.Command, name string, yes bool) (*scaffold.Result, error) {
	env, err := userdata.ReadEnvFile(projectEnvPath(e))
	if err != nil {
		return nil, err
	}
	p := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout())
	p.AssumeYes = yes

	g := &scaffold.Generator{
		Fs:        e.Fs,
		Templates: scaffold.Source(e.Fs, userdata.TemplateDir(e.ToolRoot, userdata.ModeProject)),
		Vars:      scaffold.Vars(e.ProjectRoot, name, env, e.now()),
		Prompt:    p,
		Out:       cmd.OutOrStdout(),
	}
	return g.Generate(e.ProjectRoot)
}

func writeGenerated(w io.Writer, res *scaffold.Result) {
	for _, f := range res.Files {
		if f.Action == scaffold.Unchanged {
			continue
		}
		fmt.Fprintf(w, "  %-8s %s\n", f.Action, f.Path)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}
