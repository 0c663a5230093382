package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"runqd/internal/config"
	"runqd/internal/logging"
	"runqd/internal/queue"
)

const maxLoggedOutput = 4096

// Command runs an external program for every job. The job payload is exported
// through RUNQ_JOB_ID, RUNQ_TASK_TYPE, RUNQ_SUBTASK and RUNQ_FOCUS.
type Command struct {
	name      string
	typeID    int
	command   string
	args      []string
	repeat    time.Duration
	singleton bool
	timeout   time.Duration
	logger    *slog.Logger
}

// NewCommand builds a Command task from its configuration entry.
func NewCommand(cfg config.CommandTask, logger *slog.Logger) (*Command, error) {
	repeat, err := ParseRepeat(cfg.Repeat)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", cfg.Name, err)
	}
	return &Command{
		name:      cfg.Name,
		typeID:    cfg.TypeID,
		command:   cfg.Command,
		args:      append([]string(nil), cfg.Args...),
		repeat:    repeat,
		singleton: cfg.Singleton,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:    logging.NewComponentLogger(logger, "task.command"),
	}, nil
}

func (c *Command) Name() string { return c.name }

func (c *Command) TypeID() int { return c.typeID }

func (c *Command) RepeatInterval() time.Duration { return c.repeat }

func (c *Command) Singleton() bool { return c.singleton }

func (c *Command) Execute(ctx context.Context, job *queue.Job) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.command, c.args...)
	cmd.Env = append(os.Environ(),
		"RUNQ_JOB_ID="+strconv.FormatInt(job.ID, 10),
		"RUNQ_TASK_TYPE="+strconv.Itoa(job.TaskType),
		"RUNQ_SUBTASK="+job.Subtask,
		"RUNQ_FOCUS="+job.Focus,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = 2 * time.Second

	started := time.Now()
	runErr := cmd.Run()
	logger := logging.WithContext(ctx, c.logger)
	attrs := []logging.Attr{
		logging.String("command", c.command),
		logging.Duration("elapsed", time.Since(started)),
	}
	if out := strings.TrimSpace(output.String()); out != "" {
		if len(out) > maxLoggedOutput {
			out = out[len(out)-maxLoggedOutput:]
		}
		attrs = append(attrs, logging.String("output", out))
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			attrs = append(attrs, logging.Int("exit_code", exitErr.ExitCode()))
		}
		logger.Debug("command failed", logging.Args(attrs...)...)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("command %s timed out after %s", c.command, c.timeout)
		}
		return fmt.Errorf("command %s: %w", c.command, runErr)
	}
	logger.Info("command finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "command_finished"))...)...)
	return nil
}
