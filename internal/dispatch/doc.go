// Package dispatch resolves a command name against the registry and runs the
// target it describes.
//
// Arguments travel as a []string from the process entry point to the
// target. The dispatcher never parses flags or re-tokenizes anything; the
// only tokens it consumes are a directory subcommand, a built-in sub-route
// or a declared dispatcher route, and those are moved into the command
// path.
package dispatch
