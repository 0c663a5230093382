package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"runqd/internal/queue"
	"runqd/internal/testsupport"
)

func TestLaunchArgs(t *testing.T) {
	got := LaunchArgs(LaunchOptions{ConfigPath: "/etc/runqd.toml", LogLevel: "debug"})
	want := []string{"daemon", "--config", "/etc/runqd.toml", "--log-level", "debug"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LaunchArgs = %v, want %v", got, want)
	}
	if got := LaunchArgs(LaunchOptions{}); !reflect.DeepEqual(got, []string{"daemon"}) {
		t.Fatalf("unexpected default args %v", got)
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runqd.pid")

	if pid, err := ReadPID(path); err != nil || pid != 0 {
		t.Fatalf("missing file: pid=%d err=%v", pid, err)
	}
	if err := os.WriteFile(path, []byte("1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPID(path); err != nil || pid != 1234 {
		t.Fatalf("pid=%d err=%v", pid, err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPID(path); err != nil || pid != 0 {
		t.Fatalf("malformed file: pid=%d err=%v", pid, err)
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Fatal("current process should be alive")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatal("non-positive pids are never alive")
	}
}

func TestForceKillRefusesSelf(t *testing.T) {
	dir := t.TempDir()
	if _, err := ForceKillProcess(filepath.Join(dir, "missing.pid"), "", os.Getpid()); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
	if _, err := ForceKillProcess(filepath.Join(dir, "missing.pid"), "", 0); err == nil {
		t.Fatal("expected error without a pid")
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if _, err := StopAndTerminate(cfg, 0); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustEnqueue(t, store, queue.NewJob{TaskType: 1})
	testsupport.MustEnqueue(t, store, queue.NewJob{TaskType: 2})

	status, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected offline snapshot")
	}
	if status.Queue.Total != 2 || status.QueueError != "" {
		t.Fatalf("unexpected queue stats: %#v err=%q", status.Queue, status.QueueError)
	}
	if status.QueueDBPath != cfg.QueueDBPath() {
		t.Fatalf("unexpected db path %q", status.QueueDBPath)
	}
}
