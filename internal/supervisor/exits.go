package supervisor

import (
	"fmt"
	"sync"

	"runqd/internal/worker"
)

// Assignment binds one job to one runner slot.
type Assignment = worker.Assignment

// Exit describes how a worker ended.
type Exit struct {
	PID      int
	Code     int
	Signaled bool
	Signal   string
}

// Abnormal reports whether the worker was terminated instead of exiting.
func (e Exit) Abnormal() bool {
	return e.Signaled
}

func (e Exit) String() string {
	if e.Signaled {
		return fmt.Sprintf("pid %d terminated by %s", e.PID, e.Signal)
	}
	return fmt.Sprintf("pid %d exited with status %d", e.PID, e.Code)
}

// exitQueue buffers exit records until the loop reaps them.
type exitQueue struct {
	mu      sync.Mutex
	exits   []Exit
	running int
	notify  chan struct{}
}

func newExitQueue() *exitQueue {
	return &exitQueue{notify: make(chan struct{}, 1)}
}

func (q *exitQueue) started() {
	q.mu.Lock()
	q.running++
	q.mu.Unlock()
}

func (q *exitQueue) push(exit Exit) {
	q.mu.Lock()
	q.exits = append(q.exits, exit)
	q.running--
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Reap returns every queued exit record without blocking.
func (q *exitQueue) Reap() []Exit {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.exits) == 0 {
		return nil
	}
	out := q.exits
	q.exits = nil
	return out
}

// Notify delivers a token whenever a worker ends. Tokens coalesce.
func (q *exitQueue) Notify() <-chan struct{} {
	return q.notify
}

// Running returns the number of workers that have not ended yet.
func (q *exitQueue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}
