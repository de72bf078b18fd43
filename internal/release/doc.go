// Package release runs the release pipeline for one project.
//
// A run moves through fixed phases: participants may veto before versions
// are written and before anything is built, the propagator writes confirmed
// versions into the sources, and every module in the diff list is then built,
// offered to participants, published and read back from the repository.
// Errors accumulate on the run's Context and are reported once at the end.
package release
