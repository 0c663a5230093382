package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"

	"runqd/internal/config"
	"runqd/internal/daemon"
	"runqd/internal/deps"
	"runqd/internal/ipc"
	"runqd/internal/logging"
	"runqd/internal/logs"
	"runqd/internal/metrics"
	"runqd/internal/queue"
	"runqd/internal/runner"
	"runqd/internal/scheduler"
	"runqd/internal/supervisor"
	"runqd/internal/task"
	"runqd/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// ConfigPath is forwarded to worker processes.
	ConfigPath string
	// Executable overrides the binary re-executed for process isolation.
	Executable string
	// Console keeps log output on stdout in addition to the run log.
	Console bool
}

// Run starts the runqd daemon runtime and blocks until a termination signal
// or an IPC stop request.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("runqd-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	outputs := []string{logPath}
	if opts.Console {
		outputs = append([]string{"stdout"}, outputs...)
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update runqd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "runqd-*.log", Exclude: []string{logPath}},
	)
	store, err := queue.Open(cfg)
	if err != nil {
		logging.Critical(logger, "open queue store failed", "store_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
		)
		return err
	}

	catalog, err := task.NewCatalog(cfg, logger)
	if err != nil {
		_ = store.Close()
		logging.Critical(logger, "task catalog invalid", "catalog_invalid", logging.Error(err))
		return err
	}
	tasks, err := catalog.Resolve(cfg.Scheduler.Tasks)
	if err != nil {
		_ = store.Close()
		logging.Critical(logger, "configured task unknown", "catalog_resolve_failed",
			logging.Error(err),
			logging.String("known_tasks", fmt.Sprint(catalog.Names())),
		)
		return err
	}
	registry := runner.NewRegistry(logger)
	if err := registry.Initialize(tasks, cfg.Scheduler.MaxRunners); err != nil {
		_ = store.Close()
		logging.Critical(logger, "runner registration failed", "runner_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "list at least one task and keep max_runners >= task count"),
		)
		return err
	}

	for _, missing := range deps.Missing(deps.CheckBinaries(deps.ForCommandTasks(cfg.Tasks.Command, cfg.Scheduler.Tasks))) {
		logging.WarnWithContext(logger, "command task program not found", "task_command_missing",
			logging.String(logging.FieldTask, missing.Name),
			logging.String("command", missing.Command),
			logging.String(logging.FieldErrorHint, missing.Detail),
			logging.String(logging.FieldImpact, "jobs for this task will fail until the program is installed"),
		)
	}

	sup, err := newSupervisor(cfg, opts, store, catalog, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	collectors := metrics.New()
	d, err := daemon.New(cfg, store, registry, logger, daemon.Options{
		Supervisor: sup,
		Metrics:    collectors,
		LogPath:    logPath,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// Take the instance lock before touching the pidfile, port or socket.
	if err := d.Start(signalCtx); err != nil {
		logging.Critical(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running instance and queue database access"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	apiServer := daemon.NewAPIServer(cfg, d, logger)
	if err := apiServer.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "api server start failed", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "HTTP status and metrics unavailable"),
			logging.String(logging.FieldErrorHint, "change api.bind or free the port"),
		)
		apiServer = nil
	}
	defer apiServer.Stop()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger,
		ipc.WithShutdown(cancel),
		ipc.WithAPIAddress(apiServer.Addr),
	)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	notifySystemd(logger, sddaemon.SdNotifyReady)

	<-signalCtx.Done()
	notifySystemd(logger, sddaemon.SdNotifyStopping)
	logger.Info("runqd daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	d.Stop()
	return nil
}

func newSupervisor(cfg *config.Config, opts Options, store *queue.Store, catalog *task.Catalog, logger *slog.Logger) (scheduler.Supervisor, error) {
	if cfg.Scheduler.Isolation == config.IsolationInline {
		deps := worker.Deps{Store: store, Catalog: catalog, Logger: logger}
		return supervisor.NewInlineSupervisor(func(ctx context.Context, a supervisor.Assignment) error {
			return worker.Run(ctx, deps, a)
		}, logger), nil
	}
	sup, err := supervisor.NewProcessSupervisor(supervisor.ProcessOptions{
		Executable: opts.Executable,
		ConfigPath: opts.ConfigPath,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create process supervisor: %w", err)
	}
	return sup, nil
}

func notifySystemd(logger *slog.Logger, state string) {
	sent, err := sddaemon.SdNotify(false, state)
	if err != nil {
		logger.Debug("systemd notify failed", logging.String("state", state), logging.Error(err))
		return
	}
	if sent {
		logger.Debug("systemd notified", logging.String("state", state))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := logs.Path(logDir, false)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
