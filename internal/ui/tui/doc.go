// Package tui is the interactive confirmation surface: a bubbletea program
// listing each module and changed package with its old version and the
// version to release, cycled through the closed candidate set.
package tui
