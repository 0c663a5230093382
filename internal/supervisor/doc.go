// Package supervisor starts workers for dispatched jobs and collects their
// exit records.
//
// Spawn never blocks on the worker. Each worker is watched by its own
// goroutine, which queues an Exit and pokes the Notify channel when the worker
// ends. The scheduling loop drains the queue with Reap. ProcessSupervisor runs
// every job in a re-executed child process; InlineSupervisor runs jobs in
// goroutines with a panic boundary and synthetic pids.
package supervisor
