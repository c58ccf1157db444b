package cli

import (
	"context"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/installer"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// BuildInfo is injected via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Env carries what the built-in commands share.
type Env struct {
	Mode userdata.Mode
	Fs   afero.Fs
	// ToolRoot holds modules/, core/, shared/, templates/ and the catalog.
	ToolRoot string
	// ProjectRoot is the project directory in project mode.
	ProjectRoot string
	Build       BuildInfo
	// Registry is set once discovery finished. The modules command lists it.
	Registry *registry.Registry
	// Fetcher replaces the HTTP downloader when set.
	Fetcher installer.Fetcher
	Now     func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// NewRoot builds the command tree of e.Mode.
func NewRoot(e *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           e.Mode.CLIName(),
		Short:         branding.Description(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPkgCmd(e), newModulesCmd(e), newVersionCmd(e))
	if e.Mode == userdata.ModeGlobal {
		root.AddCommand(newInstallCmd(e), newBundleCmd(e), newConfigCmd(e))
	} else {
		root.AddCommand(newInitCmd(e), newEnvCmd(e), newGenerateCmd(e))
	}
	return root
}

// Register adds one routine per command of the tree. Commands without a
// body are registered as group headers.
func Register(ns *registry.Namespace, e *Env) error {
	return register(ns, e.Mode, NewRoot(e), nil)
}

func register(ns *registry.Namespace, mode userdata.Mode, cmd *cobra.Command, parent []string) error {
	for _, c := range cmd.Commands() {
		path := append(append([]string(nil), parent...), c.Name())
		r := registry.Routine{
			Mode:     mode,
			Path:     path,
			Kind:     registry.KindFunction,
			Tier:     registry.TierCoreEmbedded,
			Module:   registry.BuiltinModule,
			Synopsis: c.Short,
		}
		if c.Runnable() {
			r.Run = runCobra(c)
		}
		if err := ns.Register(r); err != nil {
			return err
		}
		if err := register(ns, mode, c, path); err != nil {
			return err
		}
	}
	return nil
}

// runCobra runs a single cobra command against an invocation: the
// dispatcher already resolved the path, so only flags and arguments are
// left to cobra.
func runCobra(cmd *cobra.Command) registry.RoutineFunc {
	return func(ctx context.Context, inv runtime.Invocation) error {
		cmd.SetContext(ctx)
		cmd.SetIn(inv.In())
		cmd.SetOut(inv.Out())
		cmd.SetErr(inv.Err())

		cmd.InitDefaultHelpFlag()
		if err := cmd.ParseFlags(inv.Args); err != nil {
			return err
		}
		if help, _ := cmd.Flags().GetBool("help"); help {
			return cmd.Help()
		}

		args := cmd.Flags().Args()
		if err := cmd.ValidateArgs(args); err != nil {
			return err
		}
		if err := cmd.ValidateRequiredFlags(); err != nil {
			return err
		}
		return cmd.RunE(cmd, args)
	}
}
