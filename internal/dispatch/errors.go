package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
)

// maxSuggestionDistance bounds how different a "did you mean" candidate
// may be from the requested name.
const maxSuggestionDistance = 2

// UnknownCommandError is returned when no registry entry matches.
type UnknownCommandError struct {
	Name string
	// Suggestion is the closest registered name, if any is close enough.
	Suggestion string
}

// Error implements the error interface.
func (e *UnknownCommandError) Error() string {
	msg := fmt.Sprintf("unknown command %q", e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// RejectedModuleError is returned when the requested name belongs to a
// module the manifest contract rejected.
type RejectedModuleError struct {
	Command   string
	Rejection *registry.Rejection
}

// Error implements the error interface.
func (e *RejectedModuleError) Error() string {
	return fmt.Sprintf("command %q unavailable: %v", e.Command, e.Rejection.Err)
}

// Unwrap returns the contract error.
func (e *RejectedModuleError) Unwrap() error { return e.Rejection.Err }

// InvocationError wraps a failure raised by a command's target.
type InvocationError struct {
	Command string
	Tier    registry.Tier
	// Source is the module or routine that implements the command.
	Source string
	Err    error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("command %q (%s, %s) failed: %v", e.Command, e.Tier, e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error { return e.Err }

// ExitCode maps a dispatch error to a process exit status. A target's own
// non-zero exit status is preserved.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *runtime.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}

// suggest returns the registered name closest to name.
func suggest(name string, names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	best, bestDist := "", maxSuggestionDistance+1
	for _, candidate := range sorted {
		if dist := levenshtein.ComputeDistance(name, candidate); dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best
}
