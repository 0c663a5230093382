// Package runner holds the in-memory table of execution slots.
//
// The registry is rebuilt from the task list every time the daemon starts. Each
// slot is bound to one task and its job type, and is either idle or bound to a
// worker pid and job id. Only the scheduling loop mutates the table; readers
// such as the status API get copies through Snapshot.
package runner
