package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"runqd/internal/queue"
	"runqd/internal/runner"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockQueueReader struct {
	jobs     []*queue.Job
	stats    queue.Stats
	jobErr   error
	statsErr error
}

func (m *mockQueueReader) List(context.Context, queue.Filter) ([]*queue.Job, error) {
	return m.jobs, m.jobErr
}

func (m *mockQueueReader) Stats(context.Context) (queue.Stats, error) {
	return m.stats, m.statsErr
}

func (m *mockQueueReader) GetByID(context.Context, int64) (*queue.Job, error) {
	if len(m.jobs) == 0 {
		return nil, m.jobErr
	}
	return m.jobs[0], m.jobErr
}

func newService(reader QueueReader) *QueueService {
	svc := NewQueueService(reader)
	svc.now = func() time.Time { return epoch }
	return svc
}

func TestQueueService_List(t *testing.T) {
	reader := &mockQueueReader{
		jobs: []*queue.Job{
			{ID: 1, TaskType: 1, Subtask: "ping", ScheduledAt: epoch.Add(-time.Minute), CreatedAt: epoch, UpdatedAt: epoch},
			{ID: 2, TaskType: 2, ScheduledAt: epoch.Add(time.Minute)},
		},
	}
	got, err := newService(reader).List(context.Background(), queue.Filter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected job count: %d", len(got))
	}
	if !got[0].Due || got[1].Due {
		t.Fatalf("unexpected due flags: %#v", got)
	}
	if got[0].Subtask != "ping" || got[0].CreatedAt == "" {
		t.Fatalf("unexpected first job: %#v", got[0])
	}
	if got[1].CreatedAt != "" {
		t.Fatalf("zero timestamp should be omitted, got %q", got[1].CreatedAt)
	}
}

func TestQueueService_ListError(t *testing.T) {
	errSentinel := errors.New("boom")
	_, err := newService(&mockQueueReader{jobErr: errSentinel}).List(context.Background(), queue.Filter{})
	if !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestQueueService_Stats(t *testing.T) {
	svc := newService(&mockQueueReader{stats: queue.Stats{
		Total: 3, Due: 2, Deferred: 1,
		ByType: []queue.TypeStats{{TaskType: 1, Total: 3, Due: 2, Deferred: 1}},
	}})
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got.Total != 3 || got.Due != 2 || got.Deferred != 1 {
		t.Fatalf("unexpected totals: %#v", got)
	}
	if len(got.ByType) != 1 || got.ByType[0].TaskType != 1 {
		t.Fatalf("unexpected per-type stats: %#v", got.ByType)
	}
}

func TestQueueService_Describe(t *testing.T) {
	svc := newService(&mockQueueReader{jobs: []*queue.Job{{ID: 7, TaskType: 1, ScheduledAt: epoch}}})
	job, err := svc.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if job == nil {
		t.Fatal("Describe returned nil job")
		return
	}
	if job.ID != 7 || !job.Due {
		t.Fatalf("unexpected job: %#v", job)
	}

	missing, err := newService(&mockQueueReader{}).Describe(context.Background(), 8)
	if err != nil || missing != nil {
		t.Fatalf("expected nil job, got %#v err=%v", missing, err)
	}
}

func TestFromRunnerDerivesState(t *testing.T) {
	idle := FromRunner(runner.Runner{UUID: "a", TaskName: "Ping", JobType: 1})
	if idle.State != RunnerIdle || idle.PID != 0 || idle.StartedAt != "" {
		t.Fatalf("unexpected idle runner: %#v", idle)
	}

	busy := FromRunner(runner.Runner{
		UUID: "b", TaskName: "Heartbeat", JobType: 2, PID: 42, JobID: 9,
		Repeat: 5 * time.Minute, Singleton: true, StartedAt: epoch,
	})
	if busy.State != RunnerRunning || busy.PID != 42 || busy.JobID != 9 {
		t.Fatalf("unexpected busy runner: %#v", busy)
	}
	if busy.Repeat != "5m0s" || busy.StartedAt == "" {
		t.Fatalf("unexpected busy runner fields: %#v", busy)
	}
}

func TestSortJobsByDue(t *testing.T) {
	jobs := []Job{
		{ID: 3, ScheduledAt: formatTime(epoch.Add(time.Minute))},
		{ID: 2, ScheduledAt: formatTime(epoch)},
		{ID: 1, ScheduledAt: formatTime(epoch)},
	}
	sorted := SortJobsByDue(jobs)
	if sorted[0].ID != 1 || sorted[1].ID != 2 || sorted[2].ID != 3 {
		t.Fatalf("unexpected order: %#v", sorted)
	}
	if jobs[0].ID != 3 {
		t.Fatal("input slice was modified")
	}
}
