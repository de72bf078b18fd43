// Package releaserun wires one release of a project end to end.
//
// Run resolves configuration into a logger, takes the per-project lock,
// performs the full build, loads the diff report, asks the operator to
// confirm through the UI loop and then hands a release context to the
// orchestrator with the configured participants registered. The package
// owns process-level concerns such as signal handling and run identifiers
// so cmd/releasekit stays a thin cobra layer.
package releaserun
