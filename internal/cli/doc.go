// Package cli defines the built-in commands of both managers as cobra
// commands and registers each runnable one as a routine, so the dispatcher
// resolves them like any other core command.
package cli
