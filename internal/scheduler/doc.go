// Package scheduler runs the dispatch loop that matches due jobs to idle
// runner slots.
//
// Each pass reads the idle slot types, finds the oldest eligible job for every
// type while excluding jobs already bound or claimed earlier in the pass, and
// hands each match to the supervisor. Between passes the loop sleeps for the
// configured timeout, refreshes the storage handle and reaps finished workers.
// Task and storage errors are logged and never stop the loop; only context
// cancellation does.
package scheduler
