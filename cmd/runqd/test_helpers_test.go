package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"runqd/internal/config"
	"runqd/internal/daemon"
	"runqd/internal/ipc"
	"runqd/internal/logging"
	"runqd/internal/runner"
	"runqd/internal/supervisor"
	"runqd/internal/task"
	"runqd/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	daemon     *daemon.Daemon
	server     *ipc.Server
}

// setupOfflineEnv writes a config file for a daemon that is not running.
func setupOfflineEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTasks("Ping"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

// setupDaemonEnv serves IPC for a started daemon whose jobs block until the
// test ends.
func setupDaemonEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	env := setupOfflineEnv(t)
	cfg := env.cfg
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	registry := runner.NewRegistry(logger)
	if err := registry.Initialize([]task.Task{task.NewPing(logger)}, cfg.Scheduler.MaxRunners); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	release := make(chan struct{})
	sup := supervisor.NewInlineSupervisor(func(ctx context.Context, a supervisor.Assignment) error {
		<-release
		return nil
	}, logger)

	d, err := daemon.New(cfg, store, registry, logger, daemon.Options{Supervisor: sup})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		close(release)
		d.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI daemon test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	env.daemon = d
	env.server = srv
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
