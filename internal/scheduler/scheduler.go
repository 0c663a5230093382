package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"runqd/internal/logging"
	"runqd/internal/metrics"
	"runqd/internal/queue"
	"runqd/internal/runner"
	"runqd/internal/supervisor"
)

// Store is the queue surface the loop needs.
type Store interface {
	FindEligible(ctx context.Context, jobType int, exclude []int64) (*queue.Job, error)
	Complete(ctx context.Context, id int64) error
	Reconnect(ctx context.Context) error
}

// Supervisor starts workers and reports their exits.
type Supervisor interface {
	Spawn(ctx context.Context, a supervisor.Assignment) (int, error)
	Reap() []supervisor.Exit
	Notify() <-chan struct{}
}

// Options tunes loop timing and instrumentation.
type Options struct {
	Timeout       time.Duration
	ShutdownGrace time.Duration
	Metrics       *metrics.Scheduler
	Logger        *slog.Logger
}

const defaultTimeout = 2 * time.Second

// Scheduler owns the dispatch loop. Run, Iterate and ReapAll must be called
// from a single goroutine.
type Scheduler struct {
	registry *runner.Registry
	store    Store
	sup      Supervisor
	timeout  time.Duration
	grace    time.Duration
	metrics  *metrics.Scheduler
	logger   *slog.Logger
	state    atomic.Int32
	passes   atomic.Int64
	now      func() time.Time
}

// New builds a scheduler in the initializing state.
func New(registry *runner.Registry, store Store, sup Supervisor, opts Options) *Scheduler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	grace := opts.ShutdownGrace
	if grace < 0 {
		grace = 0
	}
	return &Scheduler{
		registry: registry,
		store:    store,
		sup:      sup,
		timeout:  timeout,
		grace:    grace,
		metrics:  opts.Metrics,
		logger:   logging.NewComponentLogger(opts.Logger, "scheduler"),
		now:      time.Now,
	}
}

// State returns the current lifecycle stage.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Passes returns how many full loop passes have completed.
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

func (s *Scheduler) setState(state State) {
	s.state.Store(int32(state))
	s.logger.Debug("scheduler state changed",
		logging.String("state", state.String()),
		logging.String(logging.FieldEventType, "scheduler_state"),
	)
}

// Run loops until ctx is cancelled, then waits up to the shutdown grace
// period for in-flight workers before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.setState(StateRunning)
	s.logger.Info("scheduler started",
		logging.Duration("timeout", s.timeout),
		logging.Int("runners", len(s.registry.Snapshot())),
		logging.String(logging.FieldEventType, "scheduler_started"),
	)

	for ctx.Err() == nil {
		s.Iterate(ctx)
		s.sleep(ctx)
		if err := s.store.Reconnect(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(s.logger, "queue reconnect failed", "store_reconnect_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next pass reuses the current handle"),
				logging.String(logging.FieldErrorHint, "check the queue database file and disk"),
			)
		}
		s.ReapAll()
		s.passes.Add(1)
		s.metrics.Iteration()
	}

	s.setState(StateStopping)
	s.drain()
	s.setState(StateStopped)
	s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
	return nil
}

// Iterate runs one matching pass and returns how many jobs were dispatched.
func (s *Scheduler) Iterate(ctx context.Context) int {
	types := s.registry.IdleTypes()
	if len(types) == 0 {
		return 0
	}
	claimed := s.registry.BusyJobIDs()

	dispatched := 0
	for _, jobType := range types {
		job, err := s.store.FindEligible(ctx, jobType, claimed)
		if err != nil {
			logging.WarnWithContext(s.logger, "eligible job lookup failed", "job_lookup_failed",
				logging.Int(logging.FieldJobType, jobType),
				logging.Error(err),
				logging.String(logging.FieldImpact, "type skipped for this pass"),
			)
			continue
		}
		if job == nil {
			continue
		}
		claimed = append(claimed, job.ID)
		if s.dispatch(ctx, jobType, job) {
			dispatched++
		}
	}
	return dispatched
}

func (s *Scheduler) dispatch(ctx context.Context, jobType int, job *queue.Job) bool {
	slot, ok := s.registry.SlotForType(jobType)
	if !ok {
		s.logger.Debug("no idle slot for claimed job",
			logging.Int(logging.FieldJobType, jobType),
			logging.Int64(logging.FieldJobID, job.ID),
		)
		return false
	}

	pid, err := s.sup.Spawn(ctx, supervisor.Assignment{
		RunnerID: slot.UUID,
		TaskName: slot.TaskName,
		JobType:  slot.JobType,
		JobID:    job.ID,
		Repeat:   slot.Repeat,
	})
	if err != nil {
		logging.Critical(s.logger, "worker spawn failed", "spawn_failed",
			logging.String(logging.FieldTask, slot.TaskName),
			logging.Int(logging.FieldJobType, jobType),
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check process limits and the runqd executable"),
		)
		s.metrics.SpawnFailed(slot.TaskName)
		return false
	}

	s.registry.MarkRunning(slot.UUID, pid, job.ID)
	s.metrics.Dispatched(slot.TaskName)
	s.metrics.SetBusy(s.registry.BusyCount())
	s.logger.Info("job dispatched",
		logging.String(logging.FieldTask, slot.TaskName),
		logging.String(logging.FieldRunnerID, slot.UUID),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int(logging.FieldPID, pid),
		logging.String(logging.FieldEventType, "job_dispatched"),
	)
	return true
}

// sleep waits for the loop timeout. Worker exit notifications wake it early,
// after which the remainder is slept again; cancellation ends it.
func (s *Scheduler) sleep(ctx context.Context) {
	deadline := s.now().Add(s.timeout)
	for {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.sup.Notify():
			timer.Stop()
		case <-timer.C:
			return
		}
	}
}

// ReapAll collects every finished worker and frees its slot. It returns the
// number of exits that matched a slot.
func (s *Scheduler) ReapAll() int {
	reaped := 0
	for _, exit := range s.sup.Reap() {
		slot, ok := s.registry.FindByPID(exit.PID)
		if !ok {
			s.logger.Debug("ignoring exit of unknown worker",
				logging.Int(logging.FieldPID, exit.PID),
				logging.String("exit", exit.String()),
			)
			continue
		}
		reaped++

		var elapsed time.Duration
		if !slot.StartedAt.IsZero() {
			elapsed = s.now().Sub(slot.StartedAt)
		}
		attrs := []logging.Attr{
			logging.String(logging.FieldTask, slot.TaskName),
			logging.String(logging.FieldRunnerID, slot.UUID),
			logging.Int64(logging.FieldJobID, slot.JobID),
			logging.Int(logging.FieldPID, exit.PID),
			logging.Duration("elapsed", elapsed),
		}

		if exit.Abnormal() {
			logging.Critical(s.logger, "worker terminated before completion", "worker_signaled",
				append(attrs,
					logging.String("signal", exit.Signal),
					logging.String(logging.FieldErrorHint, "job stays queued and is picked up again when due"),
				)...,
			)
			s.registry.MarkFinished(slot.UUID)
			s.metrics.Reaped(slot.TaskName, metrics.OutcomeSignaled, elapsed)
			continue
		}

		outcome := metrics.OutcomeExited
		if exit.Code != 0 {
			outcome = metrics.OutcomeFailed
			logging.WarnWithContext(s.logger, "worker exited with failure status", "worker_failed",
				append(attrs,
					logging.Int("exit_code", exit.Code),
					logging.String(logging.FieldImpact, "job is treated as finished and will not be retried"),
					logging.String(logging.FieldErrorHint, "see worker.log for the task error"),
				)...,
			)
		}
		// A repeating job that exited cleanly was rescheduled by its worker and
		// its new slot may already be due.
		if slot.Repeat <= 0 || exit.Code != 0 {
			if err := s.store.Complete(context.Background(), slot.JobID); err != nil {
				logging.Critical(s.logger, "could not delete finished job", "job_complete_failed",
					append(attrs, logging.Error(err))...,
				)
			}
		}
		s.registry.MarkFinished(slot.UUID)
		s.metrics.Reaped(slot.TaskName, outcome, elapsed)
		s.logger.Debug("worker reaped", logging.Args(append(attrs, logging.String(logging.FieldEventType, "worker_reaped"))...)...)
	}
	s.metrics.SetBusy(s.registry.BusyCount())
	return reaped
}

func (s *Scheduler) drain() {
	s.ReapAll()
	busy := s.registry.BusyCount()
	if busy == 0 {
		return
	}
	s.logger.Info("waiting for running workers",
		logging.Int("busy", busy),
		logging.Duration("grace", s.grace),
		logging.String(logging.FieldEventType, "scheduler_draining"),
	)
	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	for s.registry.BusyCount() > 0 {
		select {
		case <-s.sup.Notify():
			s.ReapAll()
		case <-timer.C:
			logging.WarnWithContext(s.logger, "workers still running at shutdown", "scheduler_drain_timeout",
				logging.Int("busy", s.registry.BusyCount()),
				logging.String(logging.FieldImpact, "their jobs finish or are retried after restart"),
			)
			return
		}
	}
}
