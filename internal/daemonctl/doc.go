// Package daemonctl drives a runqd daemon from the CLI: launching it
// detached, waiting for its IPC socket, stopping it with a force-kill
// fallback, and building offline status snapshots.
package daemonctl
