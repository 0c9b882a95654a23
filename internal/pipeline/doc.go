// Package pipeline turns one meeting transcript into durable records.
//
// Orchestrator.Process runs the steps in order: session validation,
// collaborator readiness, transcript fetch, analysis, optional diagram
// versioning and rendering, customer resolution and finally the session note
// with its action items. Every write is committed as it happens; a later
// failure leaves earlier writes in place and the job can be retried.
//
// The orchestrator knows nothing about the job queue. Collaborators
// (TranscriptSource, Analyzer, Renderer) and the record store are interfaces
// so the worker, tests and CLI can supply their own implementations.
package pipeline
