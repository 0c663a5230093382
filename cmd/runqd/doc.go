// Package main hosts the runqd CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into IPC calls against the
// daemon, queue maintenance requests and configuration scaffolding. Two hidden
// commands carry the runtime itself: `daemon` runs the scheduler and `worker`
// is the entry point of a re-executed worker child.
package main
