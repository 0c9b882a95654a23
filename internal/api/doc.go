// Package api defines the queue and records operations exposed by the daemon
// and the wire-format types they return.
//
// # Key Types
//
// QueueService: enqueue (single and bulk), cancel, retry, list and status.
// Enqueue consults the session notes first so already processed or skipped
// sessions are rejected before a job row exists.
//
// RecordsService: read views over customers, diagrams and action items plus
// the action item toggle used by the HTTP API and the MCP server.
//
// Job, QueueStatus, BulkResult, Customer, ActionItem, Diagram: transport DTOs.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// HTTPStatus and ErrorCode map the error taxonomy onto HTTP responses so the
// daemon handlers and the API client agree on rejection semantics.
package api
