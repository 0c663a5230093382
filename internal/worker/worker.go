package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"runqd/internal/config"
	"runqd/internal/logging"
	"runqd/internal/logs"
	"runqd/internal/queue"
	"runqd/internal/task"
)

// Assignment binds one job to one runner slot.
type Assignment struct {
	RunnerID string
	TaskName string
	JobType  int
	JobID    int64
	Repeat   time.Duration
}

// Deps carries the collaborators a worker needs.
type Deps struct {
	Store   *queue.Store
	Catalog *task.Catalog
	Logger  *slog.Logger
}

// ErrExecute wraps task execution failures so callers can map them to an exit status.
var ErrExecute = errors.New("task execution failed")

// Run executes the assigned job. It returns an error wrapping ErrExecute when
// the task fails or cannot be resolved; every other problem is logged.
func Run(ctx context.Context, deps Deps, a Assignment) error {
	ctx = logging.WithJob(ctx, logging.JobContext{RunnerID: a.RunnerID, JobID: a.JobID, Task: a.TaskName})
	logger := logging.WithContext(ctx, logging.NewComponentLogger(deps.Logger, "worker"))

	if err := deps.Store.Reconnect(ctx); err != nil {
		logging.WarnWithContext(logger, "queue reconnect failed", "worker_reconnect_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "worker continues with the existing handle"),
		)
	}

	t, ok := deps.Catalog.Lookup(a.TaskName)
	if !ok {
		logging.Critical(logger, "task not registered", "worker_unknown_task",
			logging.String(logging.FieldErrorHint, "restart the daemon after changing the task list"),
		)
		return fmt.Errorf("%w: unknown task %q", ErrExecute, a.TaskName)
	}

	job, err := deps.Store.GetByID(ctx, a.JobID)
	if err != nil {
		logging.Critical(logger, "load job failed", "worker_load_failed", logging.Error(err))
		return fmt.Errorf("%w: load job %d: %v", ErrExecute, a.JobID, err)
	}
	if job == nil {
		logging.WarnWithContext(logger, "job removed before execution", "worker_job_missing",
			logging.String(logging.FieldImpact, "nothing to execute"),
			logging.String(logging.FieldErrorHint, "job was deleted while it was being dispatched"),
		)
		return nil
	}

	started := time.Now()
	logger.Debug("executing job", logging.String(logging.FieldEventType, "job_started"))
	if err := t.Execute(ctx, job); err != nil {
		logging.Critical(logger, "task execution failed", "job_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "inspect the task output above"),
		)
		return fmt.Errorf("%w: %v", ErrExecute, err)
	}

	if a.Repeat > 0 {
		next, err := deps.Store.Reschedule(ctx, a.Repeat, job)
		switch {
		case errors.Is(err, queue.ErrJobNotFound):
			logging.WarnWithContext(logger, "repeating job vanished before reschedule", "job_reschedule_missing",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job will not run again"),
			)
		case err != nil:
			logging.Critical(logger, "reschedule failed", "job_reschedule_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		default:
			logger.Info("job rescheduled",
				logging.Time("next_run", next),
				logging.Duration("elapsed", time.Since(started)),
				logging.String(logging.FieldEventType, "job_rescheduled"),
			)
		}
		return nil
	}

	if err := deps.Store.Complete(ctx, job.ID); err != nil {
		logging.WarnWithContext(logger, "complete failed", "job_complete_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job stays queued and may run again"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return nil
	}
	logger.Info("job completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	return nil
}

// LogPath returns the shared worker log file location.
func LogPath(cfg *config.Config) string {
	return logs.Path(cfg.Paths.LogDir, true)
}

// RunProcess is the entry point of a worker child process. It builds its own
// logger, store handle and task catalog from cfg before calling Run.
func RunProcess(ctx context.Context, cfg *config.Config, a Assignment) error {
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{LogPath(cfg)},
	})
	if err != nil {
		return fmt.Errorf("init worker logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logging.Critical(logger, "open queue store failed", "worker_store_failed", logging.Error(err))
		return fmt.Errorf("%w: open queue: %v", ErrExecute, err)
	}
	defer store.Close()

	catalog, err := task.NewCatalog(cfg, logger)
	if err != nil {
		logging.Critical(logger, "build task catalog failed", "worker_catalog_failed", logging.Error(err))
		return fmt.Errorf("%w: %v", ErrExecute, err)
	}

	return Run(ctx, Deps{Store: store, Catalog: catalog, Logger: logger}, a)
}
