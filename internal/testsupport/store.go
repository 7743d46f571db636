package testsupport

import (
	"context"
	"testing"

	"rowq/internal/config"
	"rowq/internal/payload"
	"rowq/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue pushes each value onto queueName, failing the test on error.
func MustEnqueue(t testing.TB, store *queue.Store, queueName string, values ...payload.Value) {
	t.Helper()

	for _, value := range values {
		if err := store.Enqueue(context.Background(), queueName, value); err != nil {
			t.Fatalf("store.Enqueue(%q): %v", queueName, err)
		}
	}
}
