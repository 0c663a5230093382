// Package daemon coordinates the long-running runqd process.
//
// It wires the queue store, runner registry, scheduler loop and optional HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes queue maintenance helpers used by the IPC
// layer and assembles the status snapshot shown by `runqd status`.
//
// Keep orchestration logic here: matching and reaping live in the scheduler
// package while the daemon focuses on startup, shutdown and high level
// coordination.
package daemon
