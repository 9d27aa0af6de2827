// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (generation, narration, synthesis, render exhaustion, mux, ...).
//   - CommandError, which preserves the diagnostic output of failed external
//     processes so it can be fed back into script repair or surfaced to users.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
