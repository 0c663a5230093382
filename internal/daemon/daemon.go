package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"runqd/internal/config"
	"runqd/internal/logging"
	"runqd/internal/metrics"
	"runqd/internal/queue"
	"runqd/internal/runner"
	"runqd/internal/scheduler"
)

// ErrAlreadyRunning is returned by Start when the scheduler is active.
var ErrAlreadyRunning = errors.New("daemon already running")

// Daemon owns the scheduler lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	registry *runner.Registry
	sched    *scheduler.Scheduler
	metrics  *metrics.Scheduler
	logPath  string

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Options supplies the collaborators New cannot derive from config.
type Options struct {
	Supervisor scheduler.Supervisor
	Metrics    *metrics.Scheduler
	LogPath    string
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	State        scheduler.State
	Passes       int64
	Isolation    string
	Runners      []runner.Runner
	Queue        queue.Stats
	QueueError   string
	QueueDBPath  string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon around an initialized registry.
func New(cfg *config.Config, store *queue.Store, registry *runner.Registry, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || store == nil || registry == nil || opts.Supervisor == nil {
		return nil, errors.New("daemon requires config, store, registry, and supervisor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	sched := scheduler.New(registry, store, opts.Supervisor, scheduler.Options{
		Timeout:       cfg.Timeout(),
		ShutdownGrace: cfg.ShutdownGrace(),
		Metrics:       opts.Metrics,
		Logger:        logger,
	})

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		registry: registry,
		sched:    sched,
		metrics:  opts.Metrics,
		logPath:  opts.LogPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the scheduler loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return ErrAlreadyRunning
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another runqd daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	d.running.Store(true)

	go func() {
		defer close(done)
		if err := d.sched.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "scheduler exited", "scheduler_failed", logging.Error(err))
		}
	}()

	d.logger.Info("runqd daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels the scheduler, waits for it to drain and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("runqd daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the scheduler loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Runners returns a copy of the runner table.
func (d *Daemon) Runners() []runner.Runner {
	return d.registry.Snapshot()
}

// Store exposes the queue store for read-only API use.
func (d *Daemon) Store() *queue.Store {
	return d.store
}

// Metrics returns the scheduler collectors, or nil when disabled.
func (d *Daemon) Metrics() *metrics.Scheduler {
	return d.metrics
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status. Queue statistics errors are
// reported in QueueError rather than failing the call.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		State:        d.sched.State(),
		Passes:       d.sched.Passes(),
		Isolation:    d.cfg.Scheduler.Isolation,
		Runners:      d.registry.Snapshot(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		status.QueueError = err.Error()
	} else {
		status.Queue = stats
	}
	return status
}

// Enqueue adds a job to the queue.
func (d *Daemon) Enqueue(ctx context.Context, job queue.NewJob) (*queue.Job, error) {
	created, err := d.store.Enqueue(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.logger.Info("job queued",
		logging.Int64(logging.FieldJobID, created.ID),
		logging.Int(logging.FieldJobType, created.TaskType),
		logging.Time("scheduled_at", created.ScheduledAt),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	return created, nil
}

// ListQueue returns jobs matching filter.
func (d *Daemon) ListQueue(ctx context.Context, filter queue.Filter) ([]*queue.Job, error) {
	return d.store.List(ctx, filter)
}

// GetJob returns one job, or nil when it does not exist.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	return d.store.GetByID(ctx, id)
}

// RemoveJobs deletes the given jobs. Jobs bound to a running worker are
// skipped and reported back.
func (d *Daemon) RemoveJobs(ctx context.Context, ids []int64) (int64, []int64, error) {
	busy := make(map[int64]struct{})
	for _, id := range d.registry.BusyJobIDs() {
		busy[id] = struct{}{}
	}
	var removable, skipped []int64
	for _, id := range ids {
		if _, ok := busy[id]; ok {
			skipped = append(skipped, id)
			continue
		}
		removable = append(removable, id)
	}
	if len(removable) == 0 {
		return 0, skipped, nil
	}
	removed, err := d.store.Remove(ctx, removable...)
	if err != nil {
		return 0, skipped, err
	}
	return removed, skipped, nil
}

// ClearQueue removes every job that is not bound to a running worker.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if len(d.registry.BusyJobIDs()) == 0 {
		return d.store.Clear(ctx)
	}
	jobs, err := d.store.List(ctx, queue.Filter{})
	if err != nil {
		return 0, err
	}
	ids := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	removed, _, err := d.RemoveJobs(ctx, ids)
	return removed, err
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}
