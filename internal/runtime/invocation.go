package runtime

import (
	"fmt"
	"io"
	"os"
)

// Invocation carries everything a target receives when it runs.
type Invocation struct {
	// Path is the command path (e.g., ["route", "foo"]). Only dispatchers
	// and directory subcommands look at it.
	Path []string
	// Args are the trailing arguments, passed through verbatim.
	Args []string
	// Dir is the working directory. Empty means the process cwd.
	Dir string
	// Env holds extra KEY=VALUE pairs layered over the process environment.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// In returns the configured stdin or os.Stdin.
func (inv Invocation) In() io.Reader {
	if inv.Stdin != nil {
		return inv.Stdin
	}
	return os.Stdin
}

// Out returns the configured stdout or os.Stdout.
func (inv Invocation) Out() io.Writer {
	if inv.Stdout != nil {
		return inv.Stdout
	}
	return os.Stdout
}

// Err returns the configured stderr or os.Stderr.
func (inv Invocation) Err() io.Writer {
	if inv.Stderr != nil {
		return inv.Stderr
	}
	return os.Stderr
}

// Environ returns the process environment with inv.Env appended.
func (inv Invocation) Environ() []string {
	env := os.Environ()
	return append(env, inv.Env...)
}

// ExitError reports a target that finished with a non-zero status.
type ExitError struct {
	Target string
	Code   int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Target, e.Code)
}
