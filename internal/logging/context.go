package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering ("job_dispatched", "worker_reaped").
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the consequence of a warning.
	FieldImpact = "impact"
	// FieldRunnerID is the standardized key for runner slot identifiers.
	FieldRunnerID = "runner_id"
	// FieldJobID is the standardized key for queue job identifiers.
	FieldJobID = "job_id"
	// FieldJobType is the standardized key for job type numbers.
	FieldJobType = "job_type"
	// FieldTask is the standardized key for task names.
	FieldTask = "task"
	// FieldPID is the standardized key for worker process ids.
	FieldPID = "pid"
)

type jobContextKey struct{}

// JobContext identifies the runner, job and task a piece of work belongs to.
type JobContext struct {
	RunnerID string
	JobID    int64
	Task     string
}

// WithJob stores job identity on ctx so WithContext can tag log lines with it.
func WithJob(ctx context.Context, job JobContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, jobContextKey{}, job)
}

// JobFromContext returns the job identity stored by WithJob.
func JobFromContext(ctx context.Context) (JobContext, bool) {
	if ctx == nil {
		return JobContext{}, false
	}
	job, ok := ctx.Value(jobContextKey{}).(JobContext)
	return job, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	job, ok := JobFromContext(ctx)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if job.RunnerID != "" {
		fields = append(fields, slog.String(FieldRunnerID, job.RunnerID))
	}
	if job.JobID != 0 {
		fields = append(fields, slog.Int64(FieldJobID, job.JobID))
	}
	if job.Task != "" {
		fields = append(fields, slog.String(FieldTask, job.Task))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
