package task_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"runqd/internal/config"
	"runqd/internal/logging"
	"runqd/internal/queue"
	"runqd/internal/task"
	"runqd/internal/testsupport"
)

func TestCatalogResolvesBuiltinsAndCommands(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCommandTask(config.CommandTask{
		Name:      "Backup",
		TypeID:    10,
		Command:   "/bin/true",
		Repeat:    "@every 60m",
		Singleton: true,
	}))

	catalog, err := task.NewCatalog(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog returned error: %v", err)
	}
	if got := strings.Join(catalog.Names(), ","); got != "Backup,Heartbeat,Ping" {
		t.Fatalf("unexpected names: %s", got)
	}

	tasks, err := catalog.Resolve([]string{"ping", "Heartbeat", "BACKUP", "Ping"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(tasks) != 4 {
		t.Fatalf("expected duplicates to be preserved, got %d tasks", len(tasks))
	}
	if tasks[0].TypeID() != task.PingTypeID || task.RepeatInterval(tasks[0]) != 0 {
		t.Fatalf("unexpected ping task: %v", tasks[0].Name())
	}
	if task.RepeatInterval(tasks[1]) != task.HeartbeatInterval || !task.IsSingleton(tasks[1]) {
		t.Fatal("expected heartbeat to repeat and be singleton")
	}
	if tasks[2].TypeID() != 10 || task.RepeatInterval(tasks[2]) != time.Hour || !task.IsSingleton(tasks[2]) {
		t.Fatalf("unexpected command task: %s", tasks[2].Name())
	}

	if _, err := catalog.Resolve([]string{"Missing"}); !errors.Is(err, task.ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestCatalogRejectsBadCommandTasks(t *testing.T) {
	badRepeat := testsupport.NewConfig(t, testsupport.WithCommandTask(config.CommandTask{
		Name: "Report", TypeID: 11, Command: "/bin/true", Repeat: "0 3 * * *",
	}))
	if _, err := task.NewCatalog(badRepeat, logging.NewNop()); err == nil {
		t.Fatal("expected error for calendar cron repeat")
	}

	shadow := testsupport.NewConfig(t, testsupport.WithCommandTask(config.CommandTask{
		Name: "ping", TypeID: 12, Command: "/bin/true",
	}))
	if _, err := task.NewCatalog(shadow, logging.NewNop()); err == nil {
		t.Fatal("expected error when a command task shadows a built-in")
	}
}

func TestHeartbeatWritesTimestampFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	hb := task.NewHeartbeat(cfg.Paths.StateDir, logging.NewNop())

	if err := hb.Execute(context.Background(), &queue.Job{ID: 3, TaskType: task.HeartbeatTypeID}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	data, err := os.ReadFile(hb.Path())
	if err != nil {
		t.Fatalf("read heartbeat: %v", err)
	}
	if !strings.Contains(string(data), "job=3") {
		t.Fatalf("unexpected heartbeat contents: %q", data)
	}
}

func TestCommandExportsJobEnvironment(t *testing.T) {
	out := t.TempDir() + "/env.txt"
	cmd, err := task.NewCommand(config.CommandTask{
		Name:    "Dump",
		TypeID:  20,
		Command: "/bin/sh",
		Args:    []string{"-c", `printf '%s|%s|%s|%s' "$RUNQ_JOB_ID" "$RUNQ_TASK_TYPE" "$RUNQ_SUBTASK" "$RUNQ_FOCUS" > "$0"`, out},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCommand returned error: %v", err)
	}

	job := &queue.Job{ID: 9, TaskType: 20, Subtask: "sync", Focus: "bucket-1"}
	if err := cmd.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read env dump: %v", err)
	}
	if string(data) != "9|20|sync|bucket-1" {
		t.Fatalf("unexpected env dump: %q", data)
	}
}

func TestCommandReportsFailureAndTimeout(t *testing.T) {
	failing, err := task.NewCommand(config.CommandTask{
		Name: "Fail", TypeID: 21, Command: "/bin/sh", Args: []string{"-c", "exit 3"},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCommand returned error: %v", err)
	}
	if err := failing.Execute(context.Background(), &queue.Job{ID: 1, TaskType: 21}); err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	slow, err := task.NewCommand(config.CommandTask{
		Name: "Slow", TypeID: 22, Command: "/bin/sh", Args: []string{"-c", "sleep 5"}, TimeoutSeconds: 1,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCommand returned error: %v", err)
	}
	err = slow.Execute(context.Background(), &queue.Job{ID: 2, TaskType: 22})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
