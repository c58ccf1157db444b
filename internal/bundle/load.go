package bundle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// memRoot is where bundle files are materialized in the in-memory filesystem.
const memRoot = "/bundle"

// Loaded is the outcome of loading a bundle for one mode.
type Loaded struct {
	// Fs holds the bundle's files under Root.
	Fs   afero.Fs
	Root string
	// Routines lists the IDs of the registered routines in order.
	Routines    []string
	Rejections  []registry.Rejection
	Diagnostics []registry.Diagnostic
}

// Load materializes b in memory, scans it for mode and registers one routine
// per discovered command, directory subcommand and help function into ns.
// Modules the manifest contract rejects register nothing and are returned
// in Loaded.Rejections. interpreters are passed to the executor that runs
// the bundled scripts.
func Load(b *Bundle, ns *registry.Namespace, mode userdata.Mode, interpreters map[string]string) (*Loaded, error) {
	mem := afero.NewMemMapFs()
	for _, f := range b.Files {
		p := filepath.Join(memRoot, filepath.FromSlash(f.Path))
		perm := f.Mode
		if perm == 0 {
			perm = userdata.FilePermNormal
		}
		if err := afero.WriteFile(mem, p, []byte(f.Content), perm); err != nil {
			return nil, fmt.Errorf("materializing %s: %w", f.Path, err)
		}
	}

	// Built-ins are already in ns and the override tier is project-local,
	// so only the shipped module directories are scanned.
	var locs []registry.Location
	for _, loc := range registry.Layout(memRoot, "", mode) {
		loc.Builtins = false
		locs = append(locs, loc)
	}
	scanner := &registry.Scanner{Fs: mem, Mode: mode, Routines: ns}
	res := scanner.Scan(locs)

	loaded := &Loaded{
		Fs:          mem,
		Root:        memRoot,
		Rejections:  res.Rejections,
		Diagnostics: res.Diagnostics,
	}
	l := &loader{ns: ns, mode: mode, exec: runtime.NewExecutor(mem, interpreters), out: loaded}
	for _, c := range res.Candidates {
		if err := l.register(c); err != nil {
			return nil, err
		}
	}
	logging.Debug().Int("routines", len(loaded.Routines)).Int("rejected", len(loaded.Rejections)).Msg("bundle loaded")
	return loaded, nil
}

type loader struct {
	ns   *registry.Namespace
	mode userdata.Mode
	exec *runtime.Executor
	out  *Loaded
}

func (l *loader) add(r registry.Routine) error {
	if err := l.ns.Register(r); err != nil {
		return fmt.Errorf("registering bundled routine: %w", err)
	}
	l.out.Routines = append(l.out.Routines, r.ID())
	return nil
}

func (l *loader) register(c registry.Candidate) error {
	d := c.Descriptor
	r := registry.Routine{
		Mode:     l.mode,
		Path:     []string{d.Name},
		Kind:     d.Kind,
		Tier:     c.Tier,
		Module:   d.Module,
		Synopsis: d.Synopsis,
		Routes:   d.Routes,
	}

	switch d.Kind {
	case registry.KindScript, registry.KindManifestHandler:
		r.Run = l.script(d.Target)
	case registry.KindManifestDispatcher:
		r.Run = l.dispatcher(d)
	case registry.KindDirectoryDefault:
		if d.Target != "" {
			r.Run = l.script(d.Target)
		}
	default:
		return fmt.Errorf("bundle cannot carry %s command %q", d.Kind, d.Name)
	}
	if d.HelpFunc != "" {
		r.Help = l.function(d.Module, d.Libraries, d.HelpFunc)
	}
	if err := l.add(r); err != nil {
		return err
	}

	for _, sub := range d.SubcommandNames() {
		sd := d.Subcommands[sub]
		err := l.add(registry.Routine{
			Mode:   l.mode,
			Path:   []string{d.Name, sub},
			Kind:   registry.KindDirectorySubcommand,
			Tier:   c.Tier,
			Module: d.Module,
			Run:    l.script(sd.Target),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) script(path string) registry.RoutineFunc {
	return func(ctx context.Context, inv runtime.Invocation) error {
		return l.exec.RunScript(ctx, path, inv)
	}
}

func (l *loader) function(moduleDir string, libraries []string, fn string) registry.RoutineFunc {
	return func(ctx context.Context, inv runtime.Invocation) error {
		return l.exec.CallFunction(ctx, moduleDir, libraries, fn, inv)
	}
}

// dispatcher runs a manifest dispatcher. A dispatcher naming a registered
// routine forwards to it; otherwise it is a shell function of the module.
func (l *loader) dispatcher(d *registry.Descriptor) registry.RoutineFunc {
	if !d.Embedded {
		return l.function(d.Module, d.Libraries, d.Target)
	}
	target := d.Target
	ns := l.ns
	return func(ctx context.Context, inv runtime.Invocation) error {
		r, ok := ns.Lookup(target)
		if !ok || r.Run == nil {
			return fmt.Errorf("dispatcher routine %s is not registered", target)
		}
		return r.Run(ctx, inv)
	}
}
