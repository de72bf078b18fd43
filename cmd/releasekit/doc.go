// Package main hosts the releasekit CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation and
// hands the real work to internal packages: releaserun for a release,
// history for the run ledger, preflight for repository checks. Output that
// is tabular goes through ui.RenderTable so every command shares one look.
package main
