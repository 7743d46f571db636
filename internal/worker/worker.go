package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"rowq/internal/config"
	"rowq/internal/logging"
	"rowq/internal/payload"
)

// Source yields the next payload of a queue. queue.Scope satisfies it.
type Source interface {
	Poll(ctx context.Context) (payload.Value, bool, error)
}

// Handler processes one payload.
type Handler func(ctx context.Context, value payload.Value) error

// Options controls polling cadence.
type Options struct {
	Name               string
	PollInterval       time.Duration
	ErrorRetryInterval time.Duration
	Concurrency        int
}

// OptionsFromConfig builds Options from the [worker] section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Name:               cfg.Worker.Queue,
		PollInterval:       time.Duration(cfg.Worker.PollInterval) * time.Second,
		ErrorRetryInterval: time.Duration(cfg.Worker.ErrorRetryInterval) * time.Second,
		Concurrency:        cfg.Worker.Concurrency,
	}
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.ErrorRetryInterval <= 0 {
		o.ErrorRetryInterval = 10 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// HandlerError wraps an error returned by the Handler.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string { return fmt.Sprintf("handler: %v", e.Err) }

func (e *HandlerError) Unwrap() error { return e.Err }

// Stats counts poll outcomes since the worker was created.
type Stats struct {
	Polls        int64
	Processed    int64
	Failed       int64
	Idle         int64
	SourceErrors int64
}

// Worker drives a Source with a Handler.
type Worker struct {
	source  Source
	handler Handler
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	running bool

	polls        atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	idle         atomic.Int64
	sourceErrors atomic.Int64
}

// New creates a Worker. A nil logger discards output.
func New(source Source, handler Handler, opts Options, logger *slog.Logger) *Worker {
	return &Worker{
		source:  source,
		handler: handler,
		opts:    opts.withDefaults(),
		logger:  logging.NewComponentLogger(logger, "worker"),
	}
}

// Poll runs one iteration: claim a payload and, if there was one, handle it.
// It reports whether work was found. A source error is returned as is; a
// handler error is returned as *HandlerError after being logged.
func (w *Worker) Poll(ctx context.Context) (bool, error) {
	logger := logging.WithContext(ctx, w.logger)
	w.polls.Add(1)
	logger.Debug("starting up")
	defer logger.Debug("finished for now")

	value, ok, err := w.source.Poll(ctx)
	if err != nil {
		w.sourceErrors.Add(1)
		return false, err
	}
	if !ok {
		w.idle.Add(1)
		logger.Debug("couldn't find any work")
		return false, nil
	}

	logger.Info("found some work", logging.String("kind", value.Kind().String()))
	if err := w.handler(ctx, value); err != nil {
		w.failed.Add(1)
		logger.Warn("handler failed; payload will not be retried",
			logging.Error(err),
			logging.String(logging.FieldEventType, "handler_failed"),
			logging.String(logging.FieldErrorHint, "re-enqueue the payload once the handler is fixed"),
		)
		return true, &HandlerError{Err: err}
	}
	w.processed.Add(1)
	return true, nil
}

// Run polls with Concurrency goroutines until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.logger.Info("worker started",
		logging.String(logging.FieldQueue, w.opts.Name),
		logging.Int("concurrency", w.opts.Concurrency),
		logging.Duration("poll_interval", w.opts.PollInterval),
	)

	var wg sync.WaitGroup
	wg.Add(w.opts.Concurrency)
	for i := 0; i < w.opts.Concurrency; i++ {
		laneCtx := logging.WithWorker(ctx, i)
		if w.opts.Name != "" {
			laneCtx = logging.WithQueue(laneCtx, w.opts.Name)
		}
		go w.runLane(laneCtx, &wg)
	}
	wg.Wait()

	w.logger.Info("worker stopped", logging.String(logging.FieldQueue, w.opts.Name))
	return nil
}

func (w *Worker) runLane(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		found, err := w.Poll(ctx)
		var handlerErr *HandlerError
		switch {
		case err != nil && !errors.As(err, &handlerErr):
			if ctx.Err() != nil {
				return
			}
			logging.WithContext(ctx, w.logger).Error("failed to claim next payload",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			if !sleep(ctx, w.opts.ErrorRetryInterval) {
				return
			}
		case !found:
			if !sleep(ctx, w.opts.PollInterval) {
				return
			}
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stats returns a snapshot of the poll counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Polls:        w.polls.Load(),
		Processed:    w.processed.Load(),
		Failed:       w.failed.Load(),
		Idle:         w.idle.Load(),
		SourceErrors: w.sourceErrors.Load(),
	}
}
