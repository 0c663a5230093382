// Package queue persists scheduler jobs in SQLite and exposes the matching,
// completion and requeue operations the scheduling loop relies on.
//
// A job is eligible for dispatch once its scheduled time is at or before the
// store clock. FindEligible returns the oldest eligible job of a type while
// skipping ids already claimed in the current pass. Complete deletes a job and
// is idempotent. Reschedule moves a repeating job forward by whole multiples of
// its interval from the original schedule, so long executions never shift the
// cadence anchor and never leave a due time in the past.
//
// Every operation is a single statement, so the daemon and its worker processes
// can share the database without multi-row transactions. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
package queue
