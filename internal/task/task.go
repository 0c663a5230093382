package task

import (
	"context"
	"time"

	"runqd/internal/queue"
)

// Task processes jobs of a single type.
type Task interface {
	Name() string
	TypeID() int
	Execute(ctx context.Context, job *queue.Job) error
}

// Repeater is implemented by tasks whose jobs are rescheduled after success.
type Repeater interface {
	RepeatInterval() time.Duration
}

// Singleton is implemented by tasks that declare a single-instance preference.
type Singleton interface {
	Singleton() bool
}

// RepeatInterval returns the task's repeat interval, or zero when it does not repeat.
func RepeatInterval(t Task) time.Duration {
	if r, ok := t.(Repeater); ok {
		if d := r.RepeatInterval(); d > 0 {
			return d
		}
	}
	return 0
}

// IsSingleton reports the task's singleton flag.
func IsSingleton(t Task) bool {
	if s, ok := t.(Singleton); ok {
		return s.Singleton()
	}
	return false
}
