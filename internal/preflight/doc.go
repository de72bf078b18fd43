// Package preflight provides readiness checks for the paths, tools and
// repositories a release run depends on.
//
// These checks run in two contexts:
//   - The preflight participant calls RunAll before any version is written
//     and vetoes the run when a check fails.
//   - The CLI "repos" command uses CheckRepository to display reachability.
//
// Checks that do not apply to the run (build and publish checks in
// update-only mode) are skipped.
package preflight
