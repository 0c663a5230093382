package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"runqd/internal/logging"
	"runqd/internal/queue"
)

// Built-in task type identifiers.
const (
	PingTypeID      = 1
	HeartbeatTypeID = 2
)

// HeartbeatInterval is how often heartbeat jobs repeat.
const HeartbeatInterval = 5 * time.Minute

// Ping logs the job it receives and succeeds.
type Ping struct {
	logger *slog.Logger
}

// NewPing constructs the Ping task.
func NewPing(logger *slog.Logger) *Ping {
	return &Ping{logger: logging.NewComponentLogger(logger, "task.ping")}
}

func (p *Ping) Name() string { return "Ping" }

func (p *Ping) TypeID() int { return PingTypeID }

func (p *Ping) Execute(ctx context.Context, job *queue.Job) error {
	logging.WithContext(ctx, p.logger).Info("ping",
		logging.String("subtask", job.Subtask),
		logging.String("focus", job.Focus),
		logging.String(logging.FieldEventType, "ping"),
	)
	return nil
}

// Heartbeat records the time of each run in a file so operators can see the
// daemon is still dispatching work.
type Heartbeat struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// NewHeartbeat constructs the Heartbeat task writing into stateDir.
func NewHeartbeat(stateDir string, logger *slog.Logger) *Heartbeat {
	return &Heartbeat{
		path:   filepath.Join(stateDir, "heartbeat"),
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "task.heartbeat"),
	}
}

func (h *Heartbeat) Name() string { return "Heartbeat" }

func (h *Heartbeat) TypeID() int { return HeartbeatTypeID }

func (h *Heartbeat) RepeatInterval() time.Duration { return HeartbeatInterval }

func (h *Heartbeat) Singleton() bool { return true }

// Path returns the heartbeat file location.
func (h *Heartbeat) Path() string { return h.path }

func (h *Heartbeat) Execute(ctx context.Context, job *queue.Job) error {
	stamp := h.now().UTC().Format(time.RFC3339)
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%s job=%d\n", stamp, job.ID)), 0o644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		return fmt.Errorf("replace heartbeat: %w", err)
	}
	logging.WithContext(ctx, h.logger).Debug("heartbeat written",
		logging.String("path", h.path),
		logging.String(logging.FieldEventType, "heartbeat"),
	)
	return nil
}
