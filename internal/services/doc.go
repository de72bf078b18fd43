// Package services defines shared utilities consumed by the release pipeline
// and its participants.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, phase names, and module names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (veto, build, publish, propagation) with errors.Is.
//
// Use these helpers when wiring new participants so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
