// Package diff models the per-module API comparison consumed by a release.
//
// A Result is an immutable snapshot of one module's comparison: its old and
// suggested versions, the package change records that justify the suggestion,
// and the closed set of candidate versions an operator may pick from. Operator
// choices are kept apart in Overrides and folded in with Apply just before
// versions are propagated. Reports are read from YAML or JSON produced by an
// external diff tool, either from a file or from a command's stdout.
package diff
