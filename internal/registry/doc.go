// Package registry discovers commands and folds them into the per-invocation
// command registry.
//
// Commands come from four tiers, highest precedence first:
//
//	BoxOverride     <project>/.box/commands
//	ProjectModule   <root>/modules/<mode>
//	CoreEmbedded    built-in routines, then <root>/core/<mode>
//	SharedManifest  <root>/shared/<module>/module.yaml
//
// The Scanner only yields candidates in that order; the Registry applies
// first-wins. When running from a bundle, the same candidates are
// registered as routines in a Namespace and Reconcile rebuilds the registry
// from them without touching the disk.
//
// File organization:
//   - types.go: Tier, Kind, Descriptor, Candidate, Diagnostic
//   - namespace.go: in-process routines (Routine, Namespace)
//   - discover.go: Scanner and the tier Layout
//   - registry.go: Registry (first-wins, write-once)
//   - reconcile.go: registry reconstruction from the Namespace
package registry
