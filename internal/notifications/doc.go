// Package notifications delivers job events via ntfy.
//
// The ntfy implementation publishes to the topic URL configured in
// config.toml and degrades to a no-op when no topic is set. Event types cover
// job completion, job failure, the queue draining, and a manual test message.
// NewWorkerListener adapts the service to the worker's event bus, honouring
// the per-event toggles in the [notifications] section.
package notifications
