// Package manifest handles the module.yaml contract that lets a module expose
// commands by declaration instead of by file name.
//
// A manifest is parsed into a typed ModuleManifest, checked against the
// embedded JSON schema, and then validated against the module's actual
// contents (handler files, shell functions, in-process routines). Any
// contract failure rejects the whole module.
package manifest
