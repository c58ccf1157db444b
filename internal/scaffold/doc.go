// Package scaffold renders project templates into a project directory. It
// powers "box init" and "box generate": every *.tmpl file is rendered with
// {{TOKEN}} substitution, other files are copied verbatim, and files that
// already exist with different content are shown as a diff and only
// replaced after confirmation.
package scaffold
