// Package app wires discovery, the routine namespace and the dispatcher
// into a single run of either manager.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/bundle"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/cli"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/config"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/dispatch"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

var errorLabel = color.New(color.FgRed, color.Bold)

// Options configure one run.
type Options struct {
	Mode  userdata.Mode
	Args  []string
	Build cli.BuildInfo

	// Dir is the working directory. Empty means the process cwd.
	Dir string
	// Root overrides the configured tool root.
	Root string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (o *Options) defaults() error {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		o.Dir = wd
	}
	if o.Root == "" {
		o.Root = config.Get(config.KeyRoot)
	}
	if o.Root == "" {
		root, err := userdata.GetToolRoot()
		if err != nil {
			return err
		}
		o.Root = root
	}
	return nil
}

// Run executes one command line and returns the process exit code.
func Run(ctx context.Context, opts Options) int {
	config.Load()
	if err := opts.defaults(); err != nil {
		fmt.Fprintf(errWriter(opts.Stderr), "%s %v\n", errorLabel.Sprint("Error:"), err)
		return 1
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(config.LogLevel()),
		Output: opts.Stderr,
		Pretty: config.LogPretty(),
	})

	d, err := Setup(opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "%s %v\n", errorLabel.Sprint("Error:"), err)
		return 1
	}

	var name string
	var args []string
	if len(opts.Args) > 0 {
		name, args = opts.Args[0], opts.Args[1:]
	}
	err = d.Dispatch(ctx, name, args)
	report(opts.Stderr, d.Registry, name, err)
	return dispatch.ExitCode(err)
}

// Setup registers the built-in routines, discovers modules from disk or
// from a bundle and returns a dispatcher over the result. opts must be
// complete.
func Setup(opts Options) (*dispatch.Dispatcher, error) {
	var projectRoot string
	if opts.Mode == userdata.ModeProject {
		projectRoot = userdata.FindProjectRoot(opts.Dir)
	}

	ns := registry.NewNamespace()
	env := &cli.Env{
		Mode:        opts.Mode,
		Fs:          opts.Fs,
		ToolRoot:    opts.Root,
		ProjectRoot: projectRoot,
		Build:       opts.Build,
	}
	if err := cli.Register(ns, env); err != nil {
		return nil, fmt.Errorf("registering built-in commands: %w", err)
	}

	reg, err := discover(opts, ns, projectRoot)
	if err != nil {
		return nil, err
	}
	env.Registry = reg

	dir := opts.Dir
	if projectRoot != "" {
		dir = projectRoot
	}
	return &dispatch.Dispatcher{
		Registry: reg,
		Routines: ns,
		Exec:     runtime.NewExecutor(opts.Fs, config.Interpreters()),
		Mode:     opts.Mode,
		Dir:      dir,
		Env:      targetEnv(opts, projectRoot),
		Stdin:    opts.Stdin,
		Stdout:   opts.Stdout,
		Stderr:   opts.Stderr,
	}, nil
}

// discover builds the registry. A tool root without module directories
// runs from its bundle, if one can be found; the project override tier
// is always read from disk.
func discover(opts Options, ns *registry.Namespace, projectRoot string) (*registry.Registry, error) {
	reg := registry.New()
	scanner := &registry.Scanner{Fs: opts.Fs, Mode: opts.Mode, Routines: ns}

	path, embedded := bundle.Locate(opts.Fs, opts.Root, config.Get(config.KeyBundle))
	if !embedded {
		res := scanner.Scan(registry.Layout(opts.Root, projectRoot, opts.Mode))
		if err := reg.Build(res); err != nil {
			return nil, err
		}
		logDiagnostics(reg)
		return reg, nil
	}

	logging.Debug().Str("bundle", path).Msg("running from bundle")
	if projectRoot != "" {
		override := registry.Location{Tier: registry.TierBoxOverride, Dir: userdata.OverrideDir(projectRoot)}
		if err := reg.Build(scanner.Scan([]registry.Location{override})); err != nil {
			return nil, err
		}
	}

	b, err := bundle.ReadFile(opts.Fs, path)
	if err != nil {
		return nil, err
	}
	loaded, err := bundle.Load(b, ns, opts.Mode, config.Interpreters())
	if err != nil {
		return nil, fmt.Errorf("loading bundle %s: %w", path, err)
	}
	for _, rej := range loaded.Rejections {
		reg.Reject(rej)
	}
	reg.Diagnostics = append(reg.Diagnostics, loaded.Diagnostics...)

	if err := registry.Reconcile(reg, ns, opts.Mode); err != nil {
		return nil, err
	}
	logDiagnostics(reg)
	return reg, nil
}

func logDiagnostics(reg *registry.Registry) {
	logging.Debug().
		Int("commands", len(reg.Entries)).
		Int("rejected", len(reg.Rejected)).
		Int("diagnostics", len(reg.Diagnostics)).
		Msg("registry built")
}

// targetEnv is exported to every script and function.
func targetEnv(opts Options, projectRoot string) []string {
	env := []string{
		branding.EnvVar("ROOT") + "=" + opts.Root,
		branding.EnvVar("MODE") + "=" + opts.Mode.String(),
		branding.EnvVar("CLI") + "=" + opts.Mode.CLIName(),
	}
	if projectRoot != "" {
		env = append(env, branding.EnvVar("PROJECT_ROOT")+"="+projectRoot)
	}
	return env
}

// report prints a dispatch error. A target's own non-zero exit keeps its
// code and is summarised in one line naming the command and its source.
func report(w io.Writer, reg *registry.Registry, name string, err error) {
	if err == nil {
		return
	}
	var exitErr *runtime.ExitError
	if errors.As(err, &exitErr) {
		logging.Debug().Err(err).Str("command", name).Msg("command exited")
		msg := fmt.Sprintf("command %q exited with code %d", name, exitErr.Code)
		if desc, ok := reg.Lookup(name); ok {
			msg += fmt.Sprintf(" (%s: %s)", desc.Tier, desc.Module)
		}
		fmt.Fprintf(w, "%s %s\n", errorLabel.Sprint("Error:"), msg)
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorLabel.Sprint("Error:"), err)
}

func errWriter(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}
