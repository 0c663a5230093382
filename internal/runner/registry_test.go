package runner_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"runqd/internal/logging"
	"runqd/internal/queue"
	"runqd/internal/runner"
	"runqd/internal/task"
)

type stubTask struct {
	name   string
	typeID int
	repeat time.Duration
}

func (s stubTask) Name() string { return s.name }
func (s stubTask) TypeID() int { return s.typeID }
func (s stubTask) Execute(context.Context, *queue.Job) error { return nil }
func (s stubTask) RepeatInterval() time.Duration { return s.repeat }

func newRegistry(t *testing.T, tasks ...task.Task) *runner.Registry {
	t.Helper()
	reg := runner.NewRegistry(logging.NewNop())
	if err := reg.Initialize(tasks, len(tasks)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	return reg
}

func TestInitializeCreatesOneIdleSlotPerTask(t *testing.T) {
	reg := newRegistry(t,
		stubTask{name: "Heartbeat", typeID: 2, repeat: 5 * time.Minute},
		stubTask{name: "Ping", typeID: 1},
	)

	if got := reg.IdleTypes(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("unexpected idle types: %v", got)
	}
	snapshot := reg.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 runners, got %d", len(snapshot))
	}
	if snapshot[0].UUID == "" || snapshot[0].UUID == snapshot[1].UUID {
		t.Fatalf("expected unique uuids, got %q and %q", snapshot[0].UUID, snapshot[1].UUID)
	}
	if snapshot[0].Repeat != 5*time.Minute || snapshot[1].Repeat != 0 {
		t.Fatalf("unexpected repeat intervals: %+v", snapshot)
	}
	for _, rn := range snapshot {
		if !rn.Idle() || rn.PID != runner.NoPID || rn.JobID != runner.NoJob {
			t.Fatalf("expected idle runner, got %+v", rn)
		}
	}
	if ids := reg.BusyJobIDs(); len(ids) != 0 {
		t.Fatalf("expected no busy jobs, got %v", ids)
	}
}

func TestInitializeValidatesCounts(t *testing.T) {
	reg := runner.NewRegistry(logging.NewNop())
	if err := reg.Initialize(nil, 4); !errors.Is(err, runner.ErrNoRunners) {
		t.Fatalf("expected ErrNoRunners, got %v", err)
	}
	tasks := []task.Task{stubTask{name: "A", typeID: 1}, stubTask{name: "B", typeID: 2}}
	if err := reg.Initialize(tasks, 1); !errors.Is(err, runner.ErrTooManyRunners) {
		t.Fatalf("expected ErrTooManyRunners, got %v", err)
	}
}

func TestInitializeDiscardsPriorState(t *testing.T) {
	reg := newRegistry(t, stubTask{name: "Ping", typeID: 1})
	slot, _ := reg.SlotForType(1)
	reg.MarkRunning(slot.UUID, 100, 7)

	if err := reg.Initialize([]task.Task{stubTask{name: "Ping", typeID: 1}}, 1); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if reg.BusyCount() != 0 {
		t.Fatal("expected rebuilt registry to be idle")
	}
	if _, ok := reg.FindByPID(100); ok {
		t.Fatal("expected prior pid binding to be discarded")
	}
}

func TestMarkRunningAndFinished(t *testing.T) {
	reg := newRegistry(t, stubTask{name: "Ping", typeID: 1}, stubTask{name: "Other", typeID: 3})

	slot, ok := reg.SlotForType(1)
	if !ok {
		t.Fatal("expected idle slot for type 1")
	}
	if !reg.MarkRunning(slot.UUID, 4242, 17) {
		t.Fatal("MarkRunning returned false for known uuid")
	}
	if got := reg.IdleTypes(); !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("unexpected idle types after mark running: %v", got)
	}
	if ids := reg.BusyJobIDs(); !reflect.DeepEqual(ids, []int64{17}) {
		t.Fatalf("unexpected busy job ids: %v", ids)
	}
	if _, ok := reg.SlotForType(1); ok {
		t.Fatal("expected no idle slot for busy type")
	}
	found, ok := reg.FindByPID(4242)
	if !ok || found.UUID != slot.UUID || found.JobID != 17 || found.StartedAt.IsZero() {
		t.Fatalf("unexpected FindByPID result: %+v ok=%v", found, ok)
	}

	if !reg.MarkFinished(slot.UUID) {
		t.Fatal("MarkFinished returned false for known uuid")
	}
	if !reg.MarkFinished(slot.UUID) {
		t.Fatal("MarkFinished on idle slot should still succeed")
	}
	after, _ := reg.SlotForType(1)
	if !after.Idle() || !after.StartedAt.IsZero() {
		t.Fatalf("expected idle slot after finish, got %+v", after)
	}

	if reg.MarkRunning("missing", 1, 1) || reg.MarkFinished("missing") {
		t.Fatal("expected unknown uuid to be rejected")
	}
	if _, ok := reg.FindByPID(runner.NoPID); ok {
		t.Fatal("expected idle sentinel pid to match nothing")
	}
}

func TestIdleTypesKeepsDuplicateSlots(t *testing.T) {
	reg := newRegistry(t,
		stubTask{name: "Ping", typeID: 1},
		stubTask{name: "Ping", typeID: 1},
		stubTask{name: "Heartbeat", typeID: 2},
	)
	if got := reg.IdleTypes(); !reflect.DeepEqual(got, []int{1, 1, 2}) {
		t.Fatalf("unexpected idle types: %v", got)
	}
	first, _ := reg.SlotForType(1)
	reg.MarkRunning(first.UUID, 10, 1)
	second, ok := reg.SlotForType(1)
	if !ok || second.UUID == first.UUID {
		t.Fatalf("expected second idle slot of type 1, got %+v", second)
	}
}
