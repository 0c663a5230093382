package api

import (
	"time"

	"runqd/internal/queue"
	"runqd/internal/runner"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromJob converts a queue job, computing its due flag against now.
func FromJob(job *queue.Job, now time.Time) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:          job.ID,
		TaskType:    job.TaskType,
		Subtask:     job.Subtask,
		Focus:       job.Focus,
		ScheduledAt: formatTime(job.ScheduledAt),
		CreatedAt:   formatTime(job.CreatedAt),
		UpdatedAt:   formatTime(job.UpdatedAt),
		Due:         job.Due(now),
	}
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job, now time.Time) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job, now))
	}
	return out
}

// FromRunner converts a runner slot.
func FromRunner(r runner.Runner) Runner {
	dto := Runner{
		ID:        r.UUID,
		Task:      r.TaskName,
		JobType:   r.JobType,
		State:     RunnerIdle,
		Singleton: r.Singleton,
	}
	if r.Repeat > 0 {
		dto.Repeat = r.Repeat.String()
	}
	if !r.Idle() {
		dto.State = RunnerRunning
		dto.PID = r.PID
		dto.JobID = r.JobID
		dto.StartedAt = formatTime(r.StartedAt)
	}
	return dto
}

// FromRunners converts the runner table, keeping registration order.
func FromRunners(runners []runner.Runner) []Runner {
	out := make([]Runner, 0, len(runners))
	for _, r := range runners {
		out = append(out, FromRunner(r))
	}
	return out
}

// FromQueueStats converts queue counts.
func FromQueueStats(stats queue.Stats) QueueStats {
	out := QueueStats{
		Total:    stats.Total,
		Due:      stats.Due,
		Deferred: stats.Deferred,
		ByType:   make([]TypeStats, 0, len(stats.ByType)),
	}
	for _, ts := range stats.ByType {
		out.ByType = append(out.ByType, TypeStats(ts))
	}
	return out
}
