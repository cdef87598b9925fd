// Package services defines shared utilities consumed by the acquisition
// pipeline and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp candidate IDs, component names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent candidate statuses (retry vs terminal failure).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across components.
package services
