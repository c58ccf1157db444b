// Package runtime executes command targets: shell scripts and shell
// functions run in-process through mvdan.cc/sh, other scripts run through
// an interpreter (pwsh, python3) or directly when executable.
//
// Arguments are always handed over as a []string and are never re-parsed.
package runtime
