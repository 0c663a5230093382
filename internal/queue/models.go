package queue

import (
	"errors"
	"time"
)

var (
	// ErrJobNotFound reports that a job row no longer exists.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidInterval rejects non-positive repeat intervals.
	ErrInvalidInterval = errors.New("repeat interval must be positive")
)

// Job is a queued unit of work. TaskType matches a runner's job type; Subtask
// and Focus are opaque payload handed to the task.
type Job struct {
	ID          int64     `json:"id"`
	TaskType    int       `json:"task_type"`
	Subtask     string    `json:"subtask,omitempty"`
	Focus       string    `json:"focus,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Due reports whether the job is eligible at now.
func (j Job) Due(now time.Time) bool {
	return !j.ScheduledAt.After(now)
}

// NewJob describes a job to enqueue. A zero ScheduledAt means "now".
type NewJob struct {
	TaskType    int
	Subtask     string
	Focus       string
	ScheduledAt time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	TaskType int
	DueOnly  bool
	Limit    int
}

// TypeStats counts jobs of one task type.
type TypeStats struct {
	TaskType int `json:"task_type"`
	Total    int `json:"total"`
	Due      int `json:"due"`
	Deferred int `json:"deferred"`
}

// Stats summarizes queue contents.
type Stats struct {
	Total    int         `json:"total"`
	Due      int         `json:"due"`
	Deferred int         `json:"deferred"`
	ByType   []TypeStats `json:"by_type"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
