package registry

import "sort"

// Tier is the precedence level a command candidate comes from. Lower values
// win.
type Tier int

const (
	// TierBoxOverride is the project-local .box/commands directory.
	TierBoxOverride Tier = iota
	// TierProjectModule is <root>/modules/<mode>.
	TierProjectModule
	// TierCoreEmbedded is the built-in command set for the mode.
	TierCoreEmbedded
	// TierSharedManifest is <root>/shared, manifest-described modules only.
	TierSharedManifest
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierBoxOverride:
		return "box-override"
	case TierProjectModule:
		return "project-module"
	case TierCoreEmbedded:
		return "core"
	case TierSharedManifest:
		return "shared-manifest"
	default:
		return "unknown"
	}
}

// Kind says how a descriptor's target is invoked.
type Kind int

const (
	// KindFunction is an in-process routine family (built-in commands).
	KindFunction Kind = iota
	// KindScript is a single script file.
	KindScript
	// KindManifestHandler is a manifest command backed by a script.
	KindManifestHandler
	// KindManifestDispatcher is a manifest command backed by a routine that
	// receives the command path.
	KindManifestDispatcher
	// KindDirectoryDefault is a directory module; Target is its default
	// script and may be empty.
	KindDirectoryDefault
	// KindDirectorySubcommand is a sibling script inside a directory module.
	KindDirectorySubcommand
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindScript:
		return "script"
	case KindManifestHandler:
		return "manifest-handler"
	case KindManifestDispatcher:
		return "manifest-dispatcher"
	case KindDirectoryDefault:
		return "directory"
	case KindDirectorySubcommand:
		return "subcommand"
	default:
		return "unknown"
	}
}

// BuiltinModule is the Module value of routines compiled into the binary.
const BuiltinModule = "builtin"

// Descriptor is one registry entry.
type Descriptor struct {
	Name string
	Kind Kind
	// Target is a script path, a routine or function name, or empty for a
	// directory module without a default script.
	Target string
	Tier   Tier
	// Module is the directory (or bundle path) that produced the entry.
	Module   string
	Synopsis string

	// Parent is set on directory subcommands.
	Parent string
	// Subcommands holds a directory module's sibling scripts by name.
	Subcommands map[string]*Descriptor

	// Routes are the dispatcher's declared sub-route tokens.
	Routes []string
	// Libraries are the module's shell library files, relative to Module.
	// Set only when Target is a shell function defined by them.
	Libraries []string
	// HelpFunc is the module's own help function, if declared.
	HelpFunc string

	// Embedded marks targets that are routines in the Namespace rather
	// than files on disk.
	Embedded bool
}

// SubcommandNames returns the directory module's subcommands, sorted.
func (d *Descriptor) SubcommandNames() []string {
	names := make([]string, 0, len(d.Subcommands))
	for name := range d.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasRoute reports whether token is a declared dispatcher route.
func (d *Descriptor) HasRoute(token string) bool {
	for _, r := range d.Routes {
		if r == token {
			return true
		}
	}
	return false
}

// Candidate is a scanner result: a descriptor tagged with its tier.
type Candidate struct {
	Tier       Tier
	Descriptor *Descriptor
}

// Rejection records a manifest module refused by the contract check.
type Rejection struct {
	Tier   Tier
	Module string
	// Commands are the names the module declared, or the directory name
	// when no manifest could be read.
	Commands []string
	Err      error
}

// Severity represents discovery diagnostic severity.
type Severity string

const (
	// SeverityDebug is for expected, silent events such as shadowed commands.
	SeverityDebug Severity = "debug"
	// SeverityWarning indicates a recoverable discovery problem.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a module that could not be loaded.
	SeverityError Severity = "error"
)

// Diagnostic is a structured discovery event returned to callers instead of
// being printed, so the CLI layer decides how to render it.
type Diagnostic struct {
	Severity Severity
	// Code is a machine-readable identifier (e.g., "dir_unreadable").
	Code    string
	Message string
	Path    string
	Cause   error
}
