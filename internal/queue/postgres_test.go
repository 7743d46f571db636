package queue_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"rowq/internal/payload"
	"rowq/internal/queue"
	"rowq/internal/testsupport"
)

// openPostgres opens a store on a throwaway table in the database named by
// ROWQ_TEST_POSTGRES_DSN, skipping the test when it is unset.
func openPostgres(t *testing.T, opts ...testsupport.ConfigOption) *queue.Store {
	t.Helper()
	dsn := os.Getenv("ROWQ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROWQ_TEST_POSTGRES_DSN not set")
	}
	table := fmt.Sprintf("rowq_test_%d", time.Now().UnixNano())
	opts = append([]testsupport.ConfigOption{testsupport.WithPostgres(dsn), testsupport.WithTable(table)}, opts...)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t, opts...))
	t.Cleanup(func() {
		db := queue.DB(store)
		_, _ = db.Exec("DROP TABLE IF EXISTS " + table)
		_, _ = db.Exec("DELETE FROM rowq_schema_version WHERE table_name = $1", table)
	})
	return store
}

func TestPostgresClaimProtocol(t *testing.T) {
	store := openPostgres(t)
	testsupport.MustEnqueue(t, store, "q", payload.String("first"), payload.String("second"))

	if got := mustBacklog(t, store, "q"); got != 2 {
		t.Fatalf("expected backlog 2, got %d", got)
	}
	for _, want := range []string{"first", "second"} {
		if got := mustClaim(t, store, "q"); !payload.Equal(got, payload.String(want)) {
			t.Fatalf("expected %q, got %#v", want, got)
		}
	}
	mustBeEmpty(t, store, "q")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.Healthy() {
		t.Fatalf("expected healthy postgres store, got %+v", health)
	}
}

func TestPostgresConcurrentClaims(t *testing.T) {
	store := openPostgres(t, testsupport.WithPolicy("destroy"))
	const n = 25
	for i := 0; i < n; i++ {
		testsupport.MustEnqueue(t, store, "jobs", payload.Int(i))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, ok, err := store.ClaimAndFetch(context.Background(), "jobs")
			if err != nil || !ok {
				t.Errorf("ClaimAndFetch: ok=%v err=%v", ok, err)
				return
			}
			mu.Lock()
			seen[int64(value.(payload.Int))]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d distinct rows, got %d", n, len(seen))
	}
	if got := mustCount(t, store); got != 0 {
		t.Fatalf("expected destroy policy to leave no rows, got %d", got)
	}
}

func TestPostgresCleanupAndRelease(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newTestClock(start)
	dsn := os.Getenv("ROWQ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROWQ_TEST_POSTGRES_DSN not set")
	}
	store := openPostgres(t)
	cfgStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t,
		testsupport.WithPostgres(dsn), testsupport.WithTable(store.Table())),
		queue.WithClock(clock.Now), queue.WithPolicy("archive"))
	ctx := context.Background()

	testsupport.MustEnqueue(t, cfgStore, "q", payload.String("stuck"))
	if _, _, err := cfgStore.ClaimAndFetch(ctx, "q"); err == nil {
		t.Fatal("expected configuration error")
	}
	stuck, err := cfgStore.Stuck(ctx, "q")
	if err != nil || len(stuck) != 1 {
		t.Fatalf("expected one stuck row, got %v %v", stuck, err)
	}
	if n, err := cfgStore.Release(ctx, stuck[0].ID); err != nil || n != 1 {
		t.Fatalf("Release: %d %v", n, err)
	}

	marker := testsupport.MustOpenStore(t, testsupport.NewConfig(t,
		testsupport.WithPostgres(dsn), testsupport.WithTable(store.Table())),
		queue.WithClock(clock.Now))
	mustClaim(t, marker, "q")

	clock.Set(start.Add(61 * time.Minute))
	removed, err := marker.Cleanup(ctx, time.Hour)
	if err != nil || removed != 1 {
		t.Fatalf("expected one row removed, got %d %v", removed, err)
	}
}
