// Package services defines shared utilities consumed by the mint workflow and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, step names, video identifiers and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so every failure carries the
//     step it happened in and can be classified with errors.Is (validation,
//     derivation, storage, submission, on-chain failure).
//
// Use these helpers when wiring new integrations so operational behaviour (error
// classification, retry points, observability) stays uniform across the workflow.
package services
