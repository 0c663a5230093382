// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers. It translates queue jobs and runner slots into transport DTOs
// so the CLI and HTTP consumers never depend on internal types.
//
// # Key Types
//
// Job: transport representation of a queued job with its due flag.
//
// Runner: one runner slot with a derived idle/running state.
//
// DaemonStatus: scheduler state, runner table and queue counts.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds and
// durations are rendered with time.Duration.String.
package api
