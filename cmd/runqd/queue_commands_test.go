package main

import (
	"errors"
	"testing"
	"time"

	"runqd/internal/daemonctl"
	"runqd/internal/queue"
	"runqd/internal/task"
	"runqd/internal/testsupport"
)

func TestResolveSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		at      string
		in      time.Duration
		want    time.Time
		wantErr bool
	}{
		{name: "now", want: time.Time{}},
		{name: "delay", in: 10 * time.Minute, want: now.Add(10 * time.Minute)},
		{name: "absolute", at: "2026-03-02T08:30:00+01:00", want: time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)},
		{name: "bad absolute", at: "tomorrow", wantErr: true},
		{name: "negative delay", in: -time.Minute, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSchedule(tt.at, tt.in, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveSchedule: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseJobIDs(t *testing.T) {
	ids, err := parseJobIDs([]string{"3", " 7 "})
	if err != nil {
		t.Fatalf("parseJobIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Fatalf("unexpected ids %v", ids)
	}
	for _, bad := range []string{"x", "0", "-4"} {
		if _, err := parseJobIDs([]string{bad}); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestQueueCommandsOffline(t *testing.T) {
	env := setupOfflineEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, _, err = runCLI(t, []string{"queue", "add", "--type", "1", "--subtask", "nightly"}, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued job 1 (type 1")

	if _, _, err := runCLI(t, []string{"queue", "add", "--type", "1", "--in", "1h"}, env.configPath); err != nil {
		t.Fatalf("queue add deferred: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "list", "--due"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --due: %v", err)
	}
	requireContains(t, out, "nightly")

	out, _, err = runCLI(t, []string{"queue", "show", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "Due:       no")

	if _, _, err := runCLI(t, []string{"queue", "show", "99"}, env.configPath); err == nil {
		t.Fatal("expected missing job to fail")
	}

	out, _, err = runCLI(t, []string{"queue", "remove", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed 1 job(s)")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 job(s)")

	out, _, err = runCLI(t, []string{"queue", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "[OK] yes")
}

func TestQueueAddRejectsBadFlags(t *testing.T) {
	env := setupOfflineEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "add"}, env.configPath); err == nil {
		t.Fatal("expected missing --type to fail")
	}
	args := []string{"queue", "add", "--type", "1", "--at", "2026-01-01T00:00:00Z", "--in", "5m"}
	if _, _, err := runCLI(t, args, env.configPath); err == nil {
		t.Fatal("expected --at and --in together to fail")
	}
}

func TestQueueCommandsThroughDaemon(t *testing.T) {
	env := setupDaemonEnv(t)

	out, _, err := runCLI(t, []string{"queue", "add", "--type", "1", "--in", "1h", "--focus", "later"}, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued job")

	out, _, err = runCLI(t, []string{"queue", "list", "--type", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "later")

	out, _, err = runCLI(t, []string{"queue", "remove", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed 1 job(s)")
}

func TestStatusCommand(t *testing.T) {
	t.Run("offline", func(t *testing.T) {
		env := setupOfflineEnv(t)
		out, _, err := runCLI(t, []string{"status"}, env.configPath)
		if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
			t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
		}
		requireContains(t, out, "Not running")
		requireContains(t, out, "Queue is empty")
	})

	t.Run("running", func(t *testing.T) {
		env := setupDaemonEnv(t)
		store := testsupport.MustOpenStore(t, env.cfg)
		testsupport.MustEnqueue(t, store, queue.NewJob{
			TaskType:    task.PingTypeID,
			ScheduledAt: time.Now().Add(time.Hour),
		})

		out, _, err := runCLI(t, []string{"status"}, env.configPath)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		requireContains(t, out, "[OK] Running")
		requireContains(t, out, "Ping")
		requireContains(t, out, "Idle")
		requireContains(t, out, "Isolation")
	})
}
