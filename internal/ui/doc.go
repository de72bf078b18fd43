// Package ui is the presentation boundary of a release run.
//
// Every operator-facing interaction goes through a Loop: a single consumer
// goroutine that owns the Surface (plain text or the bubbletea program in
// ui/tui). Callers post confirmation requests, error reports and summaries
// as messages and block until the surface has handled them, so the release
// pipeline never touches terminal state directly.
package ui
