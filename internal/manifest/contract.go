package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ContractKind classifies why a module was rejected.
type ContractKind int

const (
	// MissingMetadata: the module has files but no module.yaml.
	MissingMetadata ContractKind = iota + 1
	// MissingRequiredKey: module_name or a non-empty commands map is missing.
	MissingRequiredKey
	// HandlerDispatcherConflict: a command sets both or neither of handler/dispatcher.
	HandlerDispatcherConflict
	// MissingEntrypoint: a handler file or dispatcher routine does not exist.
	MissingEntrypoint
	// UndeclaredFunction: a module function is neither a dispatcher nor private.
	UndeclaredFunction
)

// String returns the stable identifier used in diagnostics.
func (k ContractKind) String() string {
	switch k {
	case MissingMetadata:
		return "missing_metadata"
	case MissingRequiredKey:
		return "missing_required_key"
	case HandlerDispatcherConflict:
		return "handler_dispatcher_conflict"
	case MissingEntrypoint:
		return "missing_entrypoint"
	case UndeclaredFunction:
		return "undeclared_function"
	default:
		return "unknown"
	}
}

// ContractError is returned when a module breaks the manifest contract.
type ContractError struct {
	Kind    ContractKind
	Module  string // module directory or manifest path
	Command string // offending command, if any
	Detail  string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	msg := fmt.Sprintf("module %s: %s", e.Module, e.Kind)
	if e.Command != "" {
		msg += fmt.Sprintf(" (command %q)", e.Command)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// RoutineLookup reports whether an in-process routine with the given name is
// registered. The command namespace satisfies it.
type RoutineLookup interface {
	HasRoutine(name string) bool
}

// Contents describes what a module directory actually provides.
type Contents struct {
	// Dir is the module directory.
	Dir string
	// Files lists every regular file, relative to Dir, slash-separated.
	Files []string
	// Functions maps each shell function defined by a library file to the
	// file that defines it.
	Functions map[string]string
	// Libraries lists the library files (relative to Dir) that define
	// Functions. Handler scripts are not libraries.
	Libraries []string
}

// HasFile reports whether rel (slash-separated, relative to Dir) exists.
func (c *Contents) HasFile(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	for _, f := range c.Files {
		if f == rel {
			return true
		}
	}
	return false
}

// CheckContract validates m against the module's contents. The first failure
// is returned; nil means every declared command may be registered.
func CheckContract(m *ModuleManifest, contents *Contents, routines RoutineLookup) error {
	if m.ModuleName == "" || len(m.Commands) == 0 {
		missing := "commands"
		if m.ModuleName == "" {
			missing = "module_name"
		}
		return &ContractError{Kind: MissingRequiredKey, Module: contents.Dir, Detail: "missing " + missing}
	}

	dispatchers := make(map[string]bool)
	for _, name := range m.CommandNames() {
		spec := m.Commands[name]
		hasHandler := spec.Handler != ""
		hasDispatcher := spec.Dispatcher != ""
		if hasHandler == hasDispatcher {
			detail := "neither handler nor dispatcher set"
			if hasHandler {
				detail = "both handler and dispatcher set"
			}
			return &ContractError{Kind: HandlerDispatcherConflict, Module: contents.Dir, Command: name, Detail: detail}
		}

		if hasHandler {
			if !contents.HasFile(spec.Handler) {
				return &ContractError{
					Kind:    MissingEntrypoint,
					Module:  contents.Dir,
					Command: name,
					Detail:  fmt.Sprintf("handler %s not found", spec.Handler),
				}
			}
			continue
		}

		dispatchers[spec.Dispatcher] = true
		if !definesRoutine(spec.Dispatcher, contents, routines) {
			return &ContractError{
				Kind:    MissingEntrypoint,
				Module:  contents.Dir,
				Command: name,
				Detail:  fmt.Sprintf("dispatcher %s is not a loaded routine", spec.Dispatcher),
			}
		}
	}

	if m.Help != "" && !definesRoutine(m.Help, contents, routines) {
		return &ContractError{
			Kind:   MissingEntrypoint,
			Module: contents.Dir,
			Detail: fmt.Sprintf("help function %s is not a loaded routine", m.Help),
		}
	}

	fns := make([]string, 0, len(contents.Functions))
	for fn := range contents.Functions {
		fns = append(fns, fn)
	}
	sort.Strings(fns)
	for _, fn := range fns {
		if dispatchers[fn] || fn == m.Help || m.IsPrivate(fn) {
			continue
		}
		return &ContractError{
			Kind:   UndeclaredFunction,
			Module: contents.Dir,
			Detail: fmt.Sprintf("function %s (in %s) is not exposed by any command and not listed in private_functions", fn, contents.Functions[fn]),
		}
	}

	return nil
}

func definesRoutine(name string, contents *Contents, routines RoutineLookup) bool {
	if _, ok := contents.Functions[name]; ok {
		return true
	}
	return routines != nil && routines.HasRoutine(name)
}

// ReadContents lists dir on fsys and collects the shell functions defined by
// its library files. handlers are excluded from the library set. Hidden
// entries are skipped, matching what a bundle carries.
func ReadContents(fsys afero.Fs, dir string, handlers map[string]bool) (*Contents, error) {
	c := &Contents{Dir: dir, Functions: map[string]string{}}

	err := afero.Walk(fsys, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		c.Files = append(c.Files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing module %s: %w", dir, err)
	}
	sort.Strings(c.Files)

	for _, rel := range c.Files {
		if !IsLibrary(rel, handlers) {
			continue
		}
		data, err := afero.ReadFile(fsys, filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading library %s: %w", rel, err)
		}
		names, err := ParseFunctions(data, rel)
		if err != nil {
			return nil, err
		}
		c.Libraries = append(c.Libraries, rel)
		for _, name := range names {
			if _, seen := c.Functions[name]; !seen {
				c.Functions[name] = rel
			}
		}
	}

	return c, nil
}
