// Package logging assembles structured slog loggers and formatting helpers used
// across meetflow.
//
// It owns the console/JSON handlers, the in-memory stream hub behind the live
// log endpoint, and context-aware helpers so pipeline code tags log lines with
// job IDs, steps, source identifiers and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
