package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// helpCommand shows the generic help, or a module's own help with an
// argument, unless a module registers a command of that name.
const helpCommand = "help"

// Dispatcher runs one command per invocation against a sealed registry.
type Dispatcher struct {
	Registry *registry.Registry
	Routines *registry.Namespace
	// Exec runs targets found on disk.
	Exec *runtime.Executor
	Mode userdata.Mode

	// Dir and Env are handed to every target.
	Dir string
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (d *Dispatcher) stdout() io.Writer {
	if d.Stdout != nil {
		return d.Stdout
	}
	return os.Stdout
}

func (d *Dispatcher) stderr() io.Writer {
	if d.Stderr != nil {
		return d.Stderr
	}
	return os.Stderr
}

func (d *Dispatcher) invocation(path, args []string) runtime.Invocation {
	return runtime.Invocation{
		Path:   path,
		Args:   args,
		Dir:    d.Dir,
		Env:    d.Env,
		Stdin:  d.Stdin,
		Stdout: d.Stdout,
		Stderr: d.Stderr,
	}
}

// Dispatch resolves name and runs it with args. An empty name prints the
// generic help.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args []string) error {
	d.Registry.Seal()
	if d.Routines != nil {
		d.Routines.Seal()
	}

	if name == "" {
		d.writeHelp(d.stdout())
		return nil
	}

	desc, ok := d.Registry.Lookup(name)
	if !ok {
		if name == helpCommand || isHelpFlag(name) {
			return d.help(ctx, args)
		}
		if rej, rejected := d.Registry.Rejection(name); rejected {
			return &RejectedModuleError{Command: name, Rejection: rej}
		}
		d.writeHelp(d.stderr())
		return &UnknownCommandError{Name: name, Suggestion: suggest(name, d.Registry.Names())}
	}

	logging.Debug().
		Str("command", name).
		Str("kind", desc.Kind.String()).
		Str("tier", desc.Tier.String()).
		Str("target", desc.Target).
		Msg("dispatching")

	if err := d.run(ctx, desc, args); err != nil {
		var unknown *UnknownCommandError
		if errors.As(err, &unknown) {
			return err
		}
		return &InvocationError{Command: name, Tier: desc.Tier, Source: desc.Module, Err: err}
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, desc *registry.Descriptor, args []string) error {
	switch desc.Kind {
	case registry.KindScript, registry.KindManifestHandler:
		return d.runTarget(ctx, desc, []string{desc.Name}, args)

	case registry.KindFunction:
		return d.runFunction(ctx, desc, args)

	case registry.KindManifestDispatcher:
		path := []string{desc.Name}
		rest := args
		if len(args) > 0 && desc.HasRoute(args[0]) {
			path = append(path, args[0])
			rest = args[1:]
		}
		if desc.Embedded {
			return d.runRoutine(ctx, desc.Target, path, rest)
		}
		return d.Exec.CallFunction(ctx, desc.Module, desc.Libraries, desc.Target, d.invocation(path, rest))

	case registry.KindDirectoryDefault:
		if len(args) > 0 {
			if sub, ok := desc.Subcommands[args[0]]; ok {
				return d.runTarget(ctx, sub, []string{desc.Name, args[0]}, args[1:])
			}
		}
		if desc.Target == "" {
			d.writeSubcommands(d.stdout(), desc)
			return nil
		}
		return d.runTarget(ctx, desc, []string{desc.Name}, args)

	default:
		return fmt.Errorf("command %q has unsupported kind %s", desc.Name, desc.Kind)
	}
}

// runTarget runs a script, or the routine standing in for it when the
// descriptor came from a bundle.
func (d *Dispatcher) runTarget(ctx context.Context, desc *registry.Descriptor, path, args []string) error {
	if desc.Embedded {
		return d.runRoutine(ctx, desc.Target, path, args)
	}
	return d.Exec.RunScript(ctx, desc.Target, d.invocation(path, args))
}

func (d *Dispatcher) runRoutine(ctx context.Context, id string, path, args []string) error {
	r, ok := d.Routines.Lookup(id)
	if !ok || r.Run == nil {
		return fmt.Errorf("routine %s is not registered", id)
	}
	return r.Run(ctx, d.invocation(path, args))
}

// runFunction picks the routine of the family whose path matches the
// longest prefix of args. A family without a matching routine lists its
// sub-routes.
func (d *Dispatcher) runFunction(ctx context.Context, desc *registry.Descriptor, args []string) error {
	family := d.Routines.Family(d.Mode, desc.Module, desc.Name)

	var best *registry.Routine
	for _, r := range family {
		if r.Run == nil || !hasPrefix(args, r.Path[1:]) {
			continue
		}
		if best == nil || len(r.Path) > len(best.Path) {
			best = r
		}
	}
	if best != nil {
		return best.Run(ctx, d.invocation(best.Path, args[len(best.Path)-1:]))
	}

	if len(args) == 0 || isHelpFlag(args[0]) {
		d.writeRoutes(d.stdout(), desc, family)
		return nil
	}
	d.writeRoutes(d.stderr(), desc, family)
	return &UnknownCommandError{Name: desc.Name + " " + args[0]}
}

// help shows the module's own help for "help <name>" when it declares one,
// the sub-command listing for groups, or the generic help.
func (d *Dispatcher) help(ctx context.Context, args []string) error {
	if len(args) == 0 {
		d.writeHelp(d.stdout())
		return nil
	}

	name := args[0]
	desc, ok := d.Registry.Lookup(name)
	if !ok {
		d.writeHelp(d.stderr())
		return &UnknownCommandError{Name: name, Suggestion: suggest(name, d.Registry.Names())}
	}

	switch {
	case desc.HelpFunc != "":
		var err error
		if desc.Embedded {
			err = d.runHelpRoutine(ctx, desc)
		} else {
			err = d.Exec.CallFunction(ctx, desc.Module, desc.Libraries, desc.HelpFunc, d.invocation([]string{name}, args[1:]))
		}
		if err != nil {
			return &InvocationError{Command: name, Tier: desc.Tier, Source: desc.Module, Err: err}
		}
		return nil
	case desc.Kind == registry.KindDirectoryDefault:
		d.writeSubcommands(d.stdout(), desc)
	case desc.Kind == registry.KindFunction:
		return d.runFunction(ctx, desc, append(args[1:len(args):len(args)], "--help"))
	default:
		d.writeHelp(d.stdout())
	}
	return nil
}

func (d *Dispatcher) runHelpRoutine(ctx context.Context, desc *registry.Descriptor) error {
	r, ok := d.Routines.Lookup(desc.HelpFunc)
	if !ok || r.Help == nil {
		return fmt.Errorf("help routine %s is not registered", desc.HelpFunc)
	}
	return r.Help(ctx, d.invocation([]string{desc.Name}, nil))
}

func hasPrefix(args, prefix []string) bool {
	if len(prefix) > len(args) {
		return false
	}
	for i, tok := range prefix {
		if args[i] != tok {
			return false
		}
	}
	return true
}

func isHelpFlag(tok string) bool {
	return tok == "-h" || tok == "--help"
}
