// Package logging assembles structured slog loggers and formatting helpers used
// across runqd components.
//
// It owns the configurable console/JSON handlers, the custom critical level,
// output plumbing to stdout and per-run log files, and retention cleanup. The
// context helpers let worker code tag every log line with the runner, job and
// task it serves. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the daemon.
package logging
