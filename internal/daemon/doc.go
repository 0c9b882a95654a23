// Package daemon coordinates the long-running meetflow process.
//
// It wires configuration, the job store, the records store, the pipeline
// orchestrator and the worker into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon serves the HTTP API,
// forwards worker events to notifications, and reports collaborator health.
//
// Keep orchestration logic here: individual pipeline steps live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
