package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"runqd/internal/logging"
	"runqd/internal/queue"
	"runqd/internal/task"
	"runqd/internal/testsupport"
	"runqd/internal/worker"
)

type recordingTask struct {
	name   string
	typeID int
	err    error
	clock  *testsupport.Clock
	spend  time.Duration
	seen   []int64
}

func (r *recordingTask) Name() string { return r.name }
func (r *recordingTask) TypeID() int { return r.typeID }
func (r *recordingTask) Execute(_ context.Context, job *queue.Job) error {
	r.seen = append(r.seen, job.ID)
	if r.clock != nil {
		r.clock.Advance(r.spend)
	}
	return r.err
}

type fixture struct {
	store   *queue.Store
	catalog *task.Catalog
	clock   *testsupport.Clock
}

func newFixture(t *testing.T, tasks ...task.Task) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	clock := testsupport.NewClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	store := testsupport.MustOpenStore(t, cfg, queue.WithClock(clock.Now))
	catalog, err := task.NewCatalog(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	for _, tk := range tasks {
		if err := catalog.Register(tk); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return fixture{store: store, catalog: catalog, clock: clock}
}

func (f fixture) deps() worker.Deps {
	return worker.Deps{Store: f.store, Catalog: f.catalog, Logger: logging.NewNop()}
}

func TestRunCompletesNonRepeatingJob(t *testing.T) {
	tk := &recordingTask{name: "Probe", typeID: 7}
	f := newFixture(t, tk)
	job := testsupport.MustEnqueue(t, f.store, queue.NewJob{TaskType: 7, Subtask: "check"})

	err := worker.Run(context.Background(), f.deps(), worker.Assignment{RunnerID: "r1", TaskName: "Probe", JobType: 7, JobID: job.ID})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(tk.seen) != 1 || tk.seen[0] != job.ID {
		t.Fatalf("expected task to see job %d, got %v", job.ID, tk.seen)
	}
	if remaining, _ := f.store.GetByID(context.Background(), job.ID); remaining != nil {
		t.Fatalf("expected job to be deleted, got %#v", remaining)
	}
}

func TestRunReschedulesRepeatingJobFromOriginalTime(t *testing.T) {
	f := newFixture(t)
	tk := &recordingTask{name: "Slow", typeID: 8, clock: f.clock, spend: 12 * time.Minute}
	if err := f.catalog.Register(tk); err != nil {
		t.Fatalf("Register: %v", err)
	}
	original := f.clock.Now()
	job := testsupport.MustEnqueue(t, f.store, queue.NewJob{TaskType: 8, ScheduledAt: original})

	err := worker.Run(context.Background(), f.deps(), worker.Assignment{TaskName: "Slow", JobType: 8, JobID: job.ID, Repeat: 5 * time.Minute})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	stored, err := f.store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("expected job to remain, got %#v err=%v", stored, err)
	}
	if want := original.Add(15 * time.Minute); !stored.ScheduledAt.Equal(want) {
		t.Fatalf("expected next run %s, got %s", want, stored.ScheduledAt)
	}
}

func TestRunReportsExecuteFailure(t *testing.T) {
	tk := &recordingTask{name: "Broken", typeID: 9, err: errors.New("boom")}
	f := newFixture(t, tk)
	job := testsupport.MustEnqueue(t, f.store, queue.NewJob{TaskType: 9})

	err := worker.Run(context.Background(), f.deps(), worker.Assignment{TaskName: "Broken", JobType: 9, JobID: job.ID})
	if !errors.Is(err, worker.ErrExecute) {
		t.Fatalf("expected ErrExecute, got %v", err)
	}
	if remaining, _ := f.store.GetByID(context.Background(), job.ID); remaining == nil {
		t.Fatal("expected failed job to stay queued")
	}
}

func TestRunToleratesMissingJobAndRejectsUnknownTask(t *testing.T) {
	tk := &recordingTask{name: "Probe", typeID: 7}
	f := newFixture(t, tk)

	if err := worker.Run(context.Background(), f.deps(), worker.Assignment{TaskName: "Probe", JobType: 7, JobID: 404}); err != nil {
		t.Fatalf("expected missing job to be tolerated, got %v", err)
	}
	if len(tk.seen) != 0 {
		t.Fatalf("expected no execution, got %v", tk.seen)
	}

	err := worker.Run(context.Background(), f.deps(), worker.Assignment{TaskName: "Nope", JobType: 7, JobID: 1})
	if !errors.Is(err, worker.ErrExecute) {
		t.Fatalf("expected ErrExecute for unknown task, got %v", err)
	}
}

func TestRunProcessUsesBuiltinTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.MustEnqueue(t, store, queue.NewJob{TaskType: task.PingTypeID})

	err := worker.RunProcess(context.Background(), cfg, worker.Assignment{TaskName: "Ping", JobType: task.PingTypeID, JobID: job.ID})
	if err != nil {
		t.Fatalf("RunProcess returned error: %v", err)
	}
	if remaining, _ := store.GetByID(context.Background(), job.ID); remaining != nil {
		t.Fatalf("expected ping job to be deleted, got %#v", remaining)
	}
}
