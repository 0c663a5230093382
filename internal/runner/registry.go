package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"runqd/internal/logging"
	"runqd/internal/task"
)

// Idle sentinels for Runner.PID and Runner.JobID.
const (
	NoPID = 0
	NoJob = int64(0)
)

var (
	// ErrNoRunners reports a configuration with no tasks.
	ErrNoRunners = errors.New("no tasks configured")
	// ErrTooManyRunners reports more tasks than the runner limit allows.
	ErrTooManyRunners = errors.New("task count exceeds max_runners")
)

// Runner is one execution slot.
type Runner struct {
	UUID      string        `json:"uuid"`
	TaskName  string        `json:"task"`
	JobType   int           `json:"job_type"`
	PID       int           `json:"pid"`
	JobID     int64         `json:"job_id"`
	Repeat    time.Duration `json:"repeat"`
	Singleton bool          `json:"singleton"`
	StartedAt time.Time     `json:"started_at,omitempty"`
}

// Idle reports whether the slot is free.
func (r Runner) Idle() bool {
	return r.PID == NoPID && r.JobID == NoJob
}

// Registry is a mutex-guarded slot table.
type Registry struct {
	mu      sync.RWMutex
	runners []*Runner
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "runner"),
	}
}

// Initialize discards every slot and creates one idle slot per task.
func (r *Registry) Initialize(tasks []task.Task, maxRunners int) error {
	if len(tasks) == 0 {
		return ErrNoRunners
	}
	if maxRunners < len(tasks) {
		return fmt.Errorf("%w: %d tasks, max_runners %d", ErrTooManyRunners, len(tasks), maxRunners)
	}

	runners := make([]*Runner, 0, len(tasks))
	owners := make(map[int]string, len(tasks))
	for _, t := range tasks {
		if owner, ok := owners[t.TypeID()]; ok && owner != t.Name() {
			logging.WarnWithContext(r.logger, "job type shared by different tasks", "job_type_collision",
				logging.Int(logging.FieldJobType, t.TypeID()),
				logging.String(logging.FieldTask, t.Name()),
				logging.String("other_task", owner),
				logging.String(logging.FieldImpact, "jobs of this type may run under either task"),
				logging.String(logging.FieldErrorHint, "give every task a unique type id"),
			)
		}
		owners[t.TypeID()] = t.Name()
		runners = append(runners, &Runner{
			UUID:      uuid.NewString(),
			TaskName:  t.Name(),
			JobType:   t.TypeID(),
			PID:       NoPID,
			JobID:     NoJob,
			Repeat:    task.RepeatInterval(t),
			Singleton: task.IsSingleton(t),
		})
	}

	r.mu.Lock()
	r.runners = runners
	r.mu.Unlock()

	r.logger.Info("runners registered",
		logging.Int("count", len(runners)),
		logging.Int("max_runners", maxRunners),
		logging.String(logging.FieldEventType, "runners_registered"),
	)
	return nil
}

// IdleTypes returns the job type of every idle slot in ascending order. Two
// idle slots sharing a type produce two entries.
func (r *Registry) IdleTypes() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]int, 0, len(r.runners))
	for _, rn := range r.runners {
		if rn.Idle() {
			types = append(types, rn.JobType)
		}
	}
	sort.Ints(types)
	return types
}

// BusyJobIDs returns the job ids bound to busy slots.
func (r *Registry) BusyJobIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for _, rn := range r.runners {
		if rn.JobID != NoJob {
			ids = append(ids, rn.JobID)
		}
	}
	return ids
}

// BusyCount returns how many slots are bound to a worker.
func (r *Registry) BusyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, rn := range r.runners {
		if !rn.Idle() {
			count++
		}
	}
	return count
}

// SlotForType returns one idle slot serving jobType.
func (r *Registry) SlotForType(jobType int) (Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rn := range r.runners {
		if rn.JobType == jobType && rn.Idle() {
			return *rn, true
		}
	}
	return Runner{}, false
}

// MarkRunning binds a worker pid and job to the slot. It returns false when
// the uuid is unknown.
func (r *Registry) MarkRunning(id string, pid int, jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn := r.find(id)
	if rn == nil {
		return false
	}
	rn.PID = pid
	rn.JobID = jobID
	rn.StartedAt = r.now()
	return true
}

// MarkFinished returns the slot to idle. It returns false when the uuid is
// unknown; an already idle slot is left as is.
func (r *Registry) MarkFinished(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn := r.find(id)
	if rn == nil {
		return false
	}
	rn.PID = NoPID
	rn.JobID = NoJob
	rn.StartedAt = time.Time{}
	return true
}

// FindByPID returns the slot bound to pid.
func (r *Registry) FindByPID(pid int) (Runner, bool) {
	if pid == NoPID {
		return Runner{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rn := range r.runners {
		if rn.PID == pid {
			return *rn, true
		}
	}
	return Runner{}, false
}

// Snapshot returns a copy of every slot in registration order.
func (r *Registry) Snapshot() []Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Runner, len(r.runners))
	for i, rn := range r.runners {
		out[i] = *rn
	}
	return out
}

func (r *Registry) find(id string) *Runner {
	for _, rn := range r.runners {
		if rn.UUID == id {
			return rn
		}
	}
	return nil
}
