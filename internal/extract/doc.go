// Package extract stages files from a downloaded archive into an install
// root according to a package's copy rules.
//
// A copy rule reads kind:pattern:destination[:ENV_VAR]. Patterns are
// doublestar globs matched against archive entry names. Kind "file" copies
// each match flat into destination; kind "dir" keeps the path below the
// pattern's static prefix. When ENV_VAR is given, the destination's
// absolute path is reported under that name.
package extract
