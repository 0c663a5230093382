// Package task defines the contract between the scheduler and the code that
// actually processes jobs, plus the catalog that maps configured task names to
// implementations.
//
// A Task owns one job type. It may also report a repeat interval (the job is
// moved forward instead of deleted after a successful run) and a singleton
// flag. Built-in tasks cover liveness checks; command tasks declared in the
// configuration run an external program with the job payload in its
// environment.
package task
