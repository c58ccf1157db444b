package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
)

// ErrRegistrySealed is returned when adding to a registry after dispatch
// started.
var ErrRegistrySealed = errors.New("command registry is sealed")

// Registry maps command names to their resolved descriptor. It is built once
// per invocation and never persisted.
type Registry struct {
	Entries map[string]*Descriptor
	// LoadedModules maps each command name to the module that produced it.
	LoadedModules map[string]string
	// Rejected maps command names declared by rejected modules to the first
	// rejection seen for them.
	Rejected    map[string]*Rejection
	Diagnostics []Diagnostic

	sealed bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		Entries:       make(map[string]*Descriptor),
		LoadedModules: make(map[string]string),
		Rejected:      make(map[string]*Rejection),
	}
}

// Add inserts c unless its name is already claimed. Names are write-once:
// the first tier, and within a tier the first module, wins. A dropped
// candidate is logged at debug level and recorded as a diagnostic.
func (r *Registry) Add(c Candidate) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	d := c.Descriptor
	if d == nil || d.Name == "" {
		return fmt.Errorf("candidate from %s tier has no name", c.Tier)
	}
	if existing, ok := r.Entries[d.Name]; ok {
		logging.Debug().
			Str("command", d.Name).
			Str("kept", existing.Module).
			Str("dropped", d.Module).
			Str("tier", c.Tier.String()).
			Msg("command shadowed")
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			Severity: SeverityDebug,
			Code:     "command_shadowed",
			Message:  fmt.Sprintf("command %q from %s shadowed by %s", d.Name, d.Module, existing.Module),
			Path:     d.Module,
		})
		return nil
	}
	r.Entries[d.Name] = d
	r.LoadedModules[d.Name] = d.Module
	return nil
}

// Reject records that a module declaring the given commands was refused.
func (r *Registry) Reject(rej Rejection) {
	for _, name := range rej.Commands {
		if _, ok := r.Rejected[name]; ok {
			continue
		}
		rej := rej
		r.Rejected[name] = &rej
	}
}

// Build folds a scan result into the registry in order.
func (r *Registry) Build(res *ScanResult) error {
	for _, c := range res.Candidates {
		if err := r.Add(c); err != nil {
			return err
		}
	}
	for _, rej := range res.Rejections {
		r.Reject(rej)
	}
	r.Diagnostics = append(r.Diagnostics, res.Diagnostics...)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.Entries[name]
	return d, ok
}

// Rejection returns the rejection of the module that declared name, if the
// name has no registered entry.
func (r *Registry) Rejection(name string) (*Rejection, bool) {
	if _, ok := r.Entries[name]; ok {
		return nil, false
	}
	rej, ok := r.Rejected[name]
	return rej, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Entries))
	for name := range r.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seal makes the registry immutable.
func (r *Registry) Seal() { r.sealed = true }
