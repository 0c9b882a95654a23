// Package apiclient talks to a running meetflow daemon over its HTTP API.
//
// Error responses are decoded back into the api package's classified errors,
// so errors.Is(err, queue.ErrAlreadyQueued) and friends work the same on both
// sides of the wire. IsUnavailable reports connection failures, which callers
// use to fall back to opening the databases directly.
package apiclient
