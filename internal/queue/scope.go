package queue

import (
	"context"

	"rowq/internal/payload"
)

// Scope binds a Store to one queue name.
type Scope struct {
	store *Store
	name  string
}

// Scope returns a Scope for name. The name is validated on each call.
func (s *Store) Scope(name string) Scope {
	return Scope{store: s, name: name}
}

// Name returns the bound queue name.
func (sc Scope) Name() string { return sc.name }

// Get claims and fetches the next payload.
func (sc Scope) Get(ctx context.Context) (payload.Value, bool, error) {
	return sc.store.ClaimAndFetch(ctx, sc.name)
}

// Set enqueues value.
func (sc Scope) Set(ctx context.Context, value payload.Value) error {
	return sc.store.Enqueue(ctx, sc.name, value)
}

// Backlog counts unclaimed rows in the bound queue.
func (sc Scope) Backlog(ctx context.Context) (int64, error) {
	return sc.store.Backlog(ctx, sc.name)
}

// Poll is Get under the name worker loops expect.
func (sc Scope) Poll(ctx context.Context) (payload.Value, bool, error) {
	return sc.Get(ctx)
}
