package queue_test

import (
	"context"
	"testing"
	"time"

	"rowq/internal/payload"
	"rowq/internal/queue"
	"rowq/internal/testsupport"
)

func TestCleanupRespectsRetentionWindow(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		age     time.Duration
		removed int64
	}{
		{"older than an hour", 61 * time.Minute, 1},
		{"younger than an hour", 59 * time.Minute, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newTestClock(start)
			store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), queue.WithClock(clock.Now))
			testsupport.MustEnqueue(t, store, "q", payload.String("done"))
			mustClaim(t, store, "q")

			clock.Set(start.Add(tc.age))
			removed, err := store.Cleanup(context.Background(), time.Hour)
			if err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if removed != tc.removed {
				t.Fatalf("expected %d removed, got %d", tc.removed, removed)
			}
			if got := mustCount(t, store); got != 1-tc.removed {
				t.Fatalf("unexpected remaining rows: %d", got)
			}
		})
	}
}

func TestCleanupDefaultsToOneHour(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newTestClock(start)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), queue.WithClock(clock.Now))
	testsupport.MustEnqueue(t, store, "q", payload.String("a"), payload.String("b"))
	mustClaim(t, store, "q")

	clock.Set(start.Add(30 * time.Minute))
	mustClaim(t, store, "q")

	clock.Set(start.Add(61 * time.Minute))
	removed, err := store.Cleanup(context.Background(), 0)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected only the older row removed, got %d", removed)
	}
}

func TestCleanupNeverRemovesUnprocessedRows(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := newTestClock(start)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t, testsupport.WithPolicy("archive")), queue.WithClock(clock.Now))
	testsupport.MustEnqueue(t, store, "q", payload.String("waiting"), payload.String("stuck"))

	// Leaves the first row claimed but unprocessed.
	if _, _, err := store.ClaimAndFetch(context.Background(), "q"); err == nil {
		t.Fatal("expected configuration error")
	}

	clock.Set(start.AddDate(1, 0, 0))
	removed, err := store.Cleanup(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no unprocessed rows removed, got %d", removed)
	}
	if got := mustCount(t, store); got != 2 {
		t.Fatalf("expected both rows kept, got %d", got)
	}
}

func TestParseRetention(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Hour, false},
		{"3600", time.Hour, false},
		{" 90 ", 90 * time.Second, false},
		{"1h", time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"-1h", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range cases {
		got, err := queue.ParseRetention(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseRetention(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRetention(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRetention(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if queue.Seconds(3600) != queue.DefaultRetention {
		t.Fatal("expected 3600 seconds to equal the default retention")
	}
}
