package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// RoutineFunc is the body of an in-process routine.
type RoutineFunc func(ctx context.Context, inv runtime.Invocation) error

// Routine is an explicitly registered in-process entry point. Built-in
// commands register one routine per runnable command path; a loaded bundle
// registers one per bundled script or manifest command.
type Routine struct {
	Mode userdata.Mode
	// Path is the command path the routine serves, e.g. ["pkg", "install"].
	Path []string
	Kind Kind
	// Tier is the tier the routine's source came from. Reconcile uses it for
	// ordering only.
	Tier     Tier
	Module   string
	Synopsis string
	Routes   []string
	// Run may be nil for a command group header or a directory module
	// without a default script.
	Run RoutineFunc
	// Help renders the module's own help text, if it declares one.
	Help RoutineFunc
}

// RoutineName builds the canonical name of a routine serving path in mode,
// e.g. "invoke-project-pkg-install".
func RoutineName(mode userdata.Mode, path []string) string {
	return "invoke-" + mode.String() + "-" + strings.Join(path, "-")
}

// ID returns the routine's registered name. Routines loaded from a module
// are qualified with it so equal paths from different tiers can coexist.
func (r *Routine) ID() string {
	name := RoutineName(r.Mode, r.Path)
	if r.Module != "" && r.Module != BuiltinModule {
		name += "@" + r.Module
	}
	return name
}

// ErrNamespaceSealed is returned by Register after Seal.
var ErrNamespaceSealed = errors.New("routine namespace is sealed")

// Namespace holds the process routines. It is populated before dispatch and
// read-only afterwards.
type Namespace struct {
	routines []*Routine
	byName   map[string]*Routine
	sealed   bool
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{byName: make(map[string]*Routine)}
}

// Register adds a routine. Names must be unique within the namespace.
func (n *Namespace) Register(r Routine) error {
	if n.sealed {
		return ErrNamespaceSealed
	}
	if len(r.Path) == 0 {
		return fmt.Errorf("routine for %s mode has an empty path", r.Mode)
	}
	if r.Run == nil && r.Kind != KindFunction && r.Kind != KindDirectoryDefault {
		return fmt.Errorf("routine %s has no body", r.ID())
	}
	name := r.ID()
	if _, ok := n.byName[name]; ok {
		return fmt.Errorf("routine %s already registered", name)
	}
	r.Path = append([]string(nil), r.Path...)
	n.routines = append(n.routines, &r)
	n.byName[name] = &r
	return nil
}

// HasRoutine reports whether a routine with the given name exists.
func (n *Namespace) HasRoutine(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.byName[name]
	return ok
}

// Lookup returns the routine with the given name.
func (n *Namespace) Lookup(name string) (*Routine, bool) {
	if n == nil {
		return nil, false
	}
	r, ok := n.byName[name]
	return r, ok
}

// ForMode returns the routines of mode ordered by tier, keeping
// registration order within a tier.
func (n *Namespace) ForMode(mode userdata.Mode) []*Routine {
	if n == nil {
		return nil
	}
	var out []*Routine
	for _, r := range n.routines {
		if r.Mode == mode {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

// Family returns the routines of mode from module whose path starts with
// name, in registration order.
func (n *Namespace) Family(mode userdata.Mode, module, name string) []*Routine {
	if n == nil {
		return nil
	}
	var out []*Routine
	for _, r := range n.routines {
		if r.Mode == mode && r.Module == module && r.Path[0] == name {
			out = append(out, r)
		}
	}
	return out
}

// Seal makes the namespace read-only.
func (n *Namespace) Seal() { n.sealed = true }

// Sealed reports whether Seal was called.
func (n *Namespace) Sealed() bool { return n.sealed }
