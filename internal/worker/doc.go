// Package worker runs queued jobs one at a time.
//
// A Worker owns one goroutine driven by a ticker from an injectable Clock.
// Each tick it claims the oldest pending job (unless a job is already
// processing), hands it to the pipeline, and records the terminal state.
// Job failures are data: the worker logs them, marks the job failed and keeps
// polling. On Start, jobs left in processing by a previous run are marked
// failed as interrupted before the first poll.
//
// Completion, failure and queue-drained events are published synchronously
// to subscribers on a Bus; a listener that panics or returns an error is
// logged and otherwise ignored.
package worker
