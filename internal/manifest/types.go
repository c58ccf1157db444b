package manifest

import (
	"path"
	"path/filepath"
	"sort"
)

// FileName is the manifest file a module directory must contain.
const FileName = "module.yaml"

// ModuleManifest declares the commands a module exposes.
type ModuleManifest struct {
	ModuleName       string                 `yaml:"module_name" json:"module_name"`
	Version          string                 `yaml:"version,omitempty" json:"version,omitempty"`
	Description      string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Commands         map[string]CommandSpec `yaml:"commands" json:"commands"`
	PrivateFunctions []string               `yaml:"private_functions,omitempty" json:"private_functions,omitempty"`
	// Help names a function that renders the module's own help text.
	Help string `yaml:"help,omitempty" json:"help,omitempty"`
}

// CommandSpec describes one exposed command. Exactly one of Handler or
// Dispatcher must be set.
type CommandSpec struct {
	// Handler is a script path relative to the module directory.
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`
	// Dispatcher names an in-process routine called with the command path
	// and the remaining arguments.
	Dispatcher string `yaml:"dispatcher,omitempty" json:"dispatcher,omitempty"`
	Synopsis   string `yaml:"synopsis,omitempty" json:"synopsis,omitempty"`
	// Routes lists sub-route tokens that become part of the command path
	// handed to the dispatcher.
	Routes []string `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// CommandNames returns the declared command names in lexical order.
func (m *ModuleManifest) CommandNames() []string {
	names := make([]string, 0, len(m.Commands))
	for name := range m.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPrivate reports whether fn is listed in PrivateFunctions.
func (m *ModuleManifest) IsPrivate(fn string) bool {
	for _, p := range m.PrivateFunctions {
		if p == fn {
			return true
		}
	}
	return false
}

// HandlerPaths returns the set of handler paths declared by any command.
func (m *ModuleManifest) HandlerPaths() map[string]bool {
	out := make(map[string]bool, len(m.Commands))
	for _, spec := range m.Commands {
		if spec.Handler != "" {
			out[path.Clean(filepath.ToSlash(spec.Handler))] = true
		}
	}
	return out
}

// HasRoute reports whether token is one of the spec's declared routes.
func (c CommandSpec) HasRoute(token string) bool {
	for _, r := range c.Routes {
		if r == token {
			return true
		}
	}
	return false
}
