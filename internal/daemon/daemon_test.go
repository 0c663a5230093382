package daemon_test

import (
	"context"
	"testing"

	"runqd/internal/config"
	"runqd/internal/daemon"
	"runqd/internal/logging"
	"runqd/internal/queue"
	"runqd/internal/runner"
	"runqd/internal/supervisor"
	"runqd/internal/task"
	"runqd/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *queue.Store, *runner.Registry) {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	catalog, err := task.NewCatalog(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	tasks, err := catalog.Resolve(cfg.Scheduler.Tasks)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	registry := runner.NewRegistry(logging.NewNop())
	if err := registry.Initialize(tasks, cfg.Scheduler.MaxRunners); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	sup := supervisor.NewInlineSupervisor(func(context.Context, supervisor.Assignment) error { return nil }, logging.NewNop())
	d, err := daemon.New(cfg, store, registry, logging.NewNop(), daemon.Options{Supervisor: sup})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, store, registry
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTasks("Ping"))
	d, _, _ := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Runners) != 1 || status.Runners[0].TaskName != "Ping" {
		t.Fatalf("unexpected runners: %#v", status.Runners)
	}
	if status.QueueDBPath != cfg.QueueDBPath() || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected paths: %#v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if status.State.String() != "stopped" {
		t.Fatalf("expected scheduler stopped, got %s", status.State)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTasks("Ping"))
	first, _, _ := newDaemon(t, cfg)
	second, _, _ := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestRemoveJobsSkipsBusyJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTasks("Ping"))
	d, store, registry := newDaemon(t, cfg)
	ctx := context.Background()

	busy, err := d.Enqueue(ctx, queue.NewJob{TaskType: task.PingTypeID})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	idle := testsupport.MustEnqueue(t, store, queue.NewJob{TaskType: task.PingTypeID})
	slot := registry.Snapshot()[0]
	registry.MarkRunning(slot.UUID, 4242, busy.ID)

	removed, skipped, err := d.RemoveJobs(ctx, []int64{busy.ID, idle.ID})
	if err != nil {
		t.Fatalf("RemoveJobs: %v", err)
	}
	if removed != 1 || len(skipped) != 1 || skipped[0] != busy.ID {
		t.Fatalf("unexpected result removed=%d skipped=%v", removed, skipped)
	}

	testsupport.MustEnqueue(t, store, queue.NewJob{TaskType: task.PingTypeID})
	cleared, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected one job cleared, got %d", cleared)
	}
	if job, _ := d.GetJob(ctx, busy.ID); job == nil {
		t.Fatal("busy job removed by clear")
	}
}
