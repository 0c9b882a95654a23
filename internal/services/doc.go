// Package services defines shared utilities consumed by the pipeline, the
// worker and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, pipeline steps, source identifiers,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Details helpers that place
//     failures into a single taxonomy (validation, configuration, upstream
//     fetch, analysis, render).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform.
package services
