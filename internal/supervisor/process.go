package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"runqd/internal/logging"
)

// ProcessOptions configures ProcessSupervisor.
type ProcessOptions struct {
	// Executable is the runqd binary; defaults to the running executable.
	Executable string
	// ConfigPath is forwarded to workers with --config when set.
	ConfigPath string
	Logger     *slog.Logger
}

// ProcessSupervisor runs each job in a child process started as
// `runqd worker ...`.
type ProcessSupervisor struct {
	*exitQueue
	executable string
	configPath string
	logger     *slog.Logger
}

// NewProcessSupervisor resolves the worker executable and returns a supervisor.
func NewProcessSupervisor(opts ProcessOptions) (*ProcessSupervisor, error) {
	executable := strings.TrimSpace(opts.Executable)
	if executable == "" {
		resolved, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		executable = resolved
	}
	return &ProcessSupervisor{
		exitQueue:  newExitQueue(),
		executable: executable,
		configPath: strings.TrimSpace(opts.ConfigPath),
		logger:     logging.NewComponentLogger(opts.Logger, "supervisor"),
	}, nil
}

// WorkerArgs builds the command line for a worker child.
func WorkerArgs(configPath string, a Assignment) []string {
	args := []string{"worker",
		"--runner", a.RunnerID,
		"--task", a.TaskName,
		"--type", strconv.Itoa(a.JobType),
		"--job", strconv.FormatInt(a.JobID, 10),
	}
	if a.Repeat > 0 {
		args = append(args, "--repeat", a.Repeat.String())
	}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

// Spawn starts a worker child and returns its pid without waiting for it.
func (s *ProcessSupervisor) Spawn(_ context.Context, a Assignment) (int, error) {
	cmd := exec.Command(s.executable, WorkerArgs(s.configPath, a)...)
	// Workers get their own process group; terminal interrupts reach only the daemon.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start worker: %w", err)
	}
	pid := cmd.Process.Pid
	s.started()

	go func() {
		waitErr := cmd.Wait()
		exit := classify(pid, cmd.ProcessState, waitErr)
		s.logger.Debug("worker exited",
			logging.Int(logging.FieldPID, pid),
			logging.String("exit", exit.String()),
			logging.String(logging.FieldEventType, "worker_exited"),
		)
		s.push(exit)
	}()
	return pid, nil
}

func classify(pid int, state *os.ProcessState, waitErr error) Exit {
	exit := Exit{PID: pid}
	if state == nil {
		exit.Signaled = true
		exit.Signal = "unknown"
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			exit.Signal = waitErr.Error()
		}
		return exit
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		exit.Signaled = true
		exit.Signal = status.Signal().String()
		return exit
	}
	exit.Code = state.ExitCode()
	return exit
}
