// Package history persists a ledger of release runs in SQLite: one row per
// run, plus the artifacts it released and the errors it recorded.
//
// The database lives at <state_dir>/history.db and is opened in WAL mode so
// the CLI can read it while a release is writing.
package history
