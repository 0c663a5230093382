package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"runqd/internal/api"
	"runqd/internal/ipc"
	"runqd/internal/queue"
)

// queueAPI is the queue surface shared by the running daemon and direct
// database access while the daemon is offline.
type queueAPI interface {
	Add(ctx context.Context, job queue.NewJob) (api.Job, error)
	List(ctx context.Context, filter queue.Filter) ([]api.Job, error)
	Describe(ctx context.Context, id int64) (*api.Job, error)
	Remove(ctx context.Context, ids []int64) (int64, []int64, error)
	Clear(ctx context.Context) (int64, error)
	Health(ctx context.Context) (queue.DatabaseHealth, error)
}

// --- IPC adapter ---

type queueIPCAdapter struct {
	client *ipc.Client
}

func (a *queueIPCAdapter) Add(_ context.Context, job queue.NewJob) (api.Job, error) {
	req := ipc.QueueAddRequest{
		TaskType: job.TaskType,
		Subtask:  job.Subtask,
		Focus:    job.Focus,
	}
	if !job.ScheduledAt.IsZero() {
		req.ScheduledAtMillis = job.ScheduledAt.UnixMilli()
	}
	resp, err := a.client.QueueAdd(req)
	if err != nil {
		return api.Job{}, err
	}
	return resp.Job, nil
}

func (a *queueIPCAdapter) List(_ context.Context, filter queue.Filter) ([]api.Job, error) {
	resp, err := a.client.QueueList(ipc.QueueListRequest{
		TaskType: filter.TaskType,
		DueOnly:  filter.DueOnly,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (a *queueIPCAdapter) Describe(_ context.Context, id int64) (*api.Job, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Job, nil
}

func (a *queueIPCAdapter) Remove(_ context.Context, ids []int64) (int64, []int64, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, nil, err
	}
	return resp.Removed, resp.Busy, nil
}

func (a *queueIPCAdapter) Clear(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) Health(_ context.Context) (queue.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return queue.DatabaseHealth{
		DBPath:           resp.DBPath,
		DatabaseExists:   resp.DatabaseExists,
		DatabaseReadable: resp.DatabaseReadable,
		SchemaVersion:    resp.SchemaVersion,
		IntegrityCheck:   resp.IntegrityCheck,
		TotalJobs:        resp.TotalJobs,
		Error:            resp.Error,
	}, nil
}

// --- Store adapter ---

// queueStoreAdapter talks to the database directly. Without a daemon no
// runner holds a job, so nothing is skipped as busy.
type queueStoreAdapter struct {
	store *queue.Store
}

func (a *queueStoreAdapter) Add(ctx context.Context, job queue.NewJob) (api.Job, error) {
	created, err := a.store.Enqueue(ctx, job)
	if err != nil {
		return api.Job{}, err
	}
	return api.FromJob(created, time.Now()), nil
}

func (a *queueStoreAdapter) List(ctx context.Context, filter queue.Filter) ([]api.Job, error) {
	jobs, err := a.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs, time.Now()), nil
}

func (a *queueStoreAdapter) Describe(ctx context.Context, id int64) (*api.Job, error) {
	job, err := a.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := api.FromJob(job, time.Now())
	return &dto, nil
}

func (a *queueStoreAdapter) Remove(ctx context.Context, ids []int64) (int64, []int64, error) {
	removed, err := a.store.Remove(ctx, ids...)
	return removed, nil, err
}

func (a *queueStoreAdapter) Clear(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *queueStoreAdapter) Health(ctx context.Context) (queue.DatabaseHealth, error) {
	return a.store.CheckHealth(ctx)
}

// withQueue runs fn against the daemon when it is reachable and against the
// queue database otherwise.
func (c *commandContext) withQueue(fn func(queueAPI) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client, dialErr := ipc.Dial(cfg.SocketPath())
	if dialErr == nil {
		defer client.Close()
		return fn(&queueIPCAdapter{client: client})
	}
	if !daemonUnavailable(dialErr) {
		return wrapDialError(dialErr, cfg.SocketPath())
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue database: %w", err)
	}
	defer store.Close()
	return fn(&queueStoreAdapter{store: store})
}
