package testsupport

import (
	"context"
	"testing"

	"runqd/internal/config"
	"runqd/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustEnqueue inserts a job for tests using the provided store.
func MustEnqueue(t testing.TB, store *queue.Store, job queue.NewJob) *queue.Job {
	t.Helper()

	created, err := store.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return created
}
