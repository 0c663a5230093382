package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"runqd/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "runqd")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Scheduler.MaxRunners != 4 {
		t.Fatalf("expected default max runners 4, got %d", cfg.Scheduler.MaxRunners)
	}
	if cfg.Timeout() != 2*time.Second {
		t.Fatalf("expected default timeout 2s, got %s", cfg.Timeout())
	}
	if cfg.Scheduler.Isolation != config.IsolationProcess {
		t.Fatalf("expected process isolation, got %q", cfg.Scheduler.Isolation)
	}
	if len(cfg.Scheduler.Tasks) != 0 {
		t.Fatalf("expected no tasks by default, got %v", cfg.Scheduler.Tasks)
	}
	if cfg.QueueDBPath() != filepath.Join(wantState, "queue.db") {
		t.Fatalf("unexpected queue path: %q", cfg.QueueDBPath())
	}
	if cfg.LockPath() != filepath.Join(wantState, "runqd.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "runqd.toml")
	content := `
[paths]
state_dir = "~/state"
log_dir = "~/logs"

[scheduler]
tasks = [" Ping ", "Backup", ""]
max_runners = 3
timeout_seconds = 0
isolation = "INLINE"

[logging]
format = "JSON"
level = "Debug"

[[tasks.command]]
name = "Backup"
type_id = 10
command = "/bin/true"
args = ["--quick"]
repeat = "@every 60m"
singleton = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if got := strings.Join(cfg.Scheduler.Tasks, ","); got != "Ping,Backup" {
		t.Fatalf("unexpected tasks: %q", got)
	}
	if cfg.Timeout() != 2*time.Second {
		t.Fatalf("expected zero timeout to fall back to 2s, got %s", cfg.Timeout())
	}
	if cfg.Scheduler.Isolation != config.IsolationInline {
		t.Fatalf("expected inline isolation, got %q", cfg.Scheduler.Isolation)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	backup, ok := cfg.CommandTask("backup")
	if !ok {
		t.Fatal("expected command task lookup to be case-insensitive")
	}
	if backup.TypeID != 10 || !backup.Singleton || backup.Repeat != "@every 60m" {
		t.Fatalf("unexpected command task: %+v", backup)
	}
	if backup.TimeoutSeconds != 0 {
		t.Fatalf("expected command task to run without a time limit, got %ds", backup.TimeoutSeconds)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative timeout",
			mutate: func(c *config.Config) { c.Scheduler.TimeoutSeconds = -1 },
			want:   "timeout_seconds",
		},
		{
			name:   "bad isolation",
			mutate: func(c *config.Config) { c.Scheduler.Isolation = "thread" },
			want:   "scheduler.isolation",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name: "command without binary",
			mutate: func(c *config.Config) {
				c.Tasks.Command = []config.CommandTask{{Name: "Backup", TypeID: 3}}
			},
			want: "command must be set",
		},
		{
			name: "command without type",
			mutate: func(c *config.Config) {
				c.Tasks.Command = []config.CommandTask{{Name: "Backup", Command: "/bin/true"}}
			},
			want: "type_id",
		},
		{
			name: "duplicate command names",
			mutate: func(c *config.Config) {
				c.Tasks.Command = []config.CommandTask{
					{Name: "Backup", TypeID: 3, Command: "/bin/true"},
					{Name: "backup", TypeID: 4, Command: "/bin/true"},
				}
			},
			want: "duplicate task name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	configPath := filepath.Join(tempHome, "bad.toml")
	if err := os.WriteFile(configPath, []byte("[scheduler\ntasks = 3"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(configPath); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if !strings.Contains(string(data), "timeout_seconds opts a task into one") {
		t.Fatal("sample config does not document the opt-in command timeout")
	}

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if got := strings.Join(cfg.Scheduler.Tasks, ","); got != "Ping,Heartbeat" {
		t.Fatalf("unexpected sample tasks: %q", got)
	}
}

func TestEnsureDirectoriesCreatesStateAndLogs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
