package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"rowq/internal/payload"
	"rowq/internal/queue"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func mustClaim(t *testing.T, store *queue.Store, queueName string) payload.Value {
	t.Helper()
	value, ok, err := store.ClaimAndFetch(context.Background(), queueName)
	if err != nil {
		t.Fatalf("ClaimAndFetch(%q): %v", queueName, err)
	}
	if !ok {
		t.Fatalf("ClaimAndFetch(%q): expected a payload, queue was empty", queueName)
	}
	return value
}

func mustBeEmpty(t *testing.T, store *queue.Store, queueName string) {
	t.Helper()
	value, ok, err := store.ClaimAndFetch(context.Background(), queueName)
	if err != nil {
		t.Fatalf("ClaimAndFetch(%q): %v", queueName, err)
	}
	if ok {
		t.Fatalf("ClaimAndFetch(%q): expected empty queue, got %#v", queueName, value)
	}
}

func mustBacklog(t *testing.T, store *queue.Store, queueName string) int64 {
	t.Helper()
	count, err := store.Backlog(context.Background(), queueName)
	if err != nil {
		t.Fatalf("Backlog(%q): %v", queueName, err)
	}
	return count
}

func mustCount(t *testing.T, store *queue.Store) int64 {
	t.Helper()
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return count
}

func onlyItem(t *testing.T, store *queue.Store) *queue.Item {
	t.Helper()
	items, err := store.List(context.Background(), queue.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(items))
	}
	return items[0]
}
