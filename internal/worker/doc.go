// Package worker executes a single dispatched job.
//
// A worker runs either as a child process started with the hidden `runqd
// worker` command or as a goroutine inside the daemon. In both cases it loads
// the job, executes the bound task, and then deletes or reschedules the job.
// Only an execution failure is reported to the caller; storage failures after
// a successful run are logged and the worker still finishes normally. Workers
// never touch the runner registry.
package worker
