// Package participants holds the release participants shipped with
// releasekit: readiness checks, git tagging, ntfy notifications and the run
// ledger. Each one implements only the hook interfaces of the phases it
// cares about; releaserun decides which ones to register from config.
package participants
