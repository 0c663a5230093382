package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"runqd/internal/logging"
)

// RunFunc executes one assignment in-process.
type RunFunc func(ctx context.Context, a Assignment) error

// inlinePIDBase keeps synthetic pids clear of the idle sentinel and of real
// process ids in log output.
const inlinePIDBase = 1 << 22

// InlineSupervisor runs each job in a goroutine. A returned error maps to exit
// status 1 and a panic is reported like a signal termination.
type InlineSupervisor struct {
	*exitQueue
	run     RunFunc
	nextPID atomic.Int64
	logger  *slog.Logger
}

// NewInlineSupervisor returns a supervisor that calls run for every job.
func NewInlineSupervisor(run RunFunc, logger *slog.Logger) *InlineSupervisor {
	s := &InlineSupervisor{
		exitQueue: newExitQueue(),
		run:       run,
		logger:    logging.NewComponentLogger(logger, "supervisor"),
	}
	s.nextPID.Store(inlinePIDBase)
	return s
}

// Spawn starts the job in a goroutine and returns its synthetic pid.
func (s *InlineSupervisor) Spawn(ctx context.Context, a Assignment) (int, error) {
	if s.run == nil {
		return 0, fmt.Errorf("start worker: no run function configured")
	}
	pid := int(s.nextPID.Add(1))
	s.started()
	workCtx := context.WithoutCancel(ctx)

	go func() {
		exit := Exit{PID: pid}
		defer func() {
			if r := recover(); r != nil {
				exit = Exit{PID: pid, Signaled: true, Signal: fmt.Sprintf("panic: %v", r)}
			}
			s.push(exit)
		}()
		if err := s.run(workCtx, a); err != nil {
			exit.Code = 1
		}
	}()
	return pid, nil
}
