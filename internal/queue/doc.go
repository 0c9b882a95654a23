// Package queue persists transcript-processing jobs in SQLite.
//
// Each job is keyed by a unique source session identifier and moves through
// pending → processing → {completed, failed}. The Store enforces the
// enqueue/cancel/retry rules with single conditional statements so the worker
// and concurrent API callers never race on a row. Consumers depend on the
// Repository interface so the backing engine can change without touching the
// worker or the API.
//
// Schema changes bump schemaVersion in schema.go; users delete queue.db to
// adopt the new schema.
package queue
