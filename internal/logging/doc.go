// Package logging assembles structured slog loggers and formatting helpers used
// across releasekit.
//
// It owns the console/JSON handlers, tees terminal output into a JSON log file,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with run IDs, phases and module names. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
