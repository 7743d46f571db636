package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rowq/internal/payload"
	"rowq/internal/testsupport"
	"rowq/internal/worker"
)

type scriptedSource struct {
	mu    sync.Mutex
	steps []step
}

type step struct {
	value payload.Value
	err   error
}

func (s *scriptedSource) Poll(context.Context) (payload.Value, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return nil, false, nil
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	if next.err != nil {
		return nil, false, next.err
	}
	return next.value, true, nil
}

func fastOptions(concurrency int) worker.Options {
	return worker.Options{
		Name:               "jobs",
		PollInterval:       5 * time.Millisecond,
		ErrorRetryInterval: 5 * time.Millisecond,
		Concurrency:        concurrency,
	}
}

func TestPollHandsPayloadToHandler(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, store, "jobs", payload.String("resize"))

	var got payload.Value
	w := worker.New(store.Scope("jobs"), func(_ context.Context, v payload.Value) error {
		got = v
		return nil
	}, fastOptions(1), nil)

	found, err := w.Poll(context.Background())
	if err != nil || !found {
		t.Fatalf("Poll: found=%v err=%v", found, err)
	}
	if !payload.Equal(got, payload.String("resize")) {
		t.Fatalf("unexpected payload: %#v", got)
	}

	found, err = w.Poll(context.Background())
	if err != nil || found {
		t.Fatalf("expected empty poll, found=%v err=%v", found, err)
	}

	stats := w.Stats()
	if stats.Polls != 2 || stats.Processed != 1 || stats.Idle != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPollReportsHandlerError(t *testing.T) {
	errHandler := errors.New("bad payload")
	source := &scriptedSource{steps: []step{{value: payload.Int(1)}}}
	w := worker.New(source, func(context.Context, payload.Value) error { return errHandler }, fastOptions(1), nil)

	found, err := w.Poll(context.Background())
	if !found {
		t.Fatal("expected work to be found")
	}
	var handlerErr *worker.HandlerError
	if !errors.As(err, &handlerErr) || !errors.Is(err, errHandler) {
		t.Fatalf("expected HandlerError wrapping handler failure, got %v", err)
	}
	if w.Stats().Failed != 1 {
		t.Fatalf("expected failure counted, got %+v", w.Stats())
	}
}

func TestPollReturnsSourceError(t *testing.T) {
	errSource := errors.New("database is gone")
	source := &scriptedSource{steps: []step{{err: errSource}}}
	w := worker.New(source, func(context.Context, payload.Value) error {
		t.Fatal("handler must not run on source error")
		return nil
	}, fastOptions(1), nil)

	found, err := w.Poll(context.Background())
	if found || !errors.Is(err, errSource) {
		t.Fatalf("expected source error, got found=%v err=%v", found, err)
	}
	if w.Stats().SourceErrors != 1 {
		t.Fatalf("expected source error counted, got %+v", w.Stats())
	}
}

func TestRunDrainsQueueOnceAcrossLanes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	const n = 12
	for i := 0; i < n; i++ {
		testsupport.MustEnqueue(t, store, "jobs", payload.Int(i))
	}

	var (
		mu   sync.Mutex
		seen = map[int64]int{}
		done = make(chan struct{})
	)
	w := worker.New(store.Scope("jobs"), func(_ context.Context, v payload.Value) error {
		mu.Lock()
		defer mu.Unlock()
		seen[int64(v.(payload.Int))]++
		if len(seen) == n {
			close(done)
		}
		return nil
	}, fastOptions(3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for queue to drain")
	}
	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("payload %d handled %d times", id, count)
		}
	}
	if w.Stats().Processed != n {
		t.Fatalf("expected %d processed, got %+v", n, w.Stats())
	}
}

func TestRunKeepsGoingAfterSourceError(t *testing.T) {
	source := &scriptedSource{steps: []step{
		{err: errors.New("transient")},
		{value: payload.String("after error")},
	}}
	handled := make(chan payload.Value, 1)
	w := worker.New(source, func(_ context.Context, v payload.Value) error {
		handled <- v
		return nil
	}, fastOptions(1), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	select {
	case v := <-handled:
		if !payload.Equal(v, payload.String("after error")) {
			t.Fatalf("unexpected payload %#v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not recover from source error")
	}
	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Worker.Queue = "mailer"
	cfg.Worker.PollInterval = 7
	cfg.Worker.Concurrency = 2

	opts := worker.OptionsFromConfig(cfg)
	if opts.Name != "mailer" || opts.PollInterval != 7*time.Second || opts.Concurrency != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
