package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"rowq/internal/config"
	"rowq/internal/logging"
)

// Cleaner deletes processed rows older than the given age. *queue.Store satisfies it.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Options configures a Sweeper.
type Options struct {
	Interval  time.Duration
	Retention time.Duration
	LockPath  string
}

// OptionsFromConfig builds Options from the [sweeper] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:  time.Duration(cfg.Sweeper.Interval) * time.Second,
		Retention: time.Duration(cfg.Sweeper.Retention) * time.Second,
		LockPath:  cfg.SweeperLockPath(),
	}
}

// Status reports sweeper activity.
type Status struct {
	Running   bool
	Runs      int64
	Removed   int64
	LastRun   time.Time
	LastError string
	LockPath  string
	Interval  time.Duration
	Retention time.Duration
}

// Sweeper runs Cleanup on a fixed interval.
type Sweeper struct {
	cleaner Cleaner
	opts    Options
	logger  *slog.Logger
	lock    *flock.Flock

	// lifecycle serializes Start and Stop; running is readable without it.
	lifecycle sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}

	runs    atomic.Int64
	removed atomic.Int64

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// New constructs a Sweeper. It does not take the lock until Start.
func New(cleaner Cleaner, opts Options, logger *slog.Logger) (*Sweeper, error) {
	if cleaner == nil {
		return nil, errors.New("sweeper requires a cleaner")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("sweeper interval must be positive, got %s", opts.Interval)
	}
	if opts.LockPath == "" {
		return nil, errors.New("sweeper requires a lock path")
	}
	return &Sweeper{
		cleaner: cleaner,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "sweeper"),
		lock:    flock.New(opts.LockPath),
	}, nil
}

// Start acquires the lock and begins sweeping in the background. The first
// sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running.CompareAndSwap(false, true) {
		return errors.New("sweeper already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		s.running.Store(false)
		return fmt.Errorf("another rowq sweeper is already running (lock %s)", s.opts.LockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(runCtx, s.done)

	s.logger.Info("sweeper started",
		logging.String("lock", s.opts.LockPath),
		logging.Duration("interval", s.opts.Interval),
		logging.Duration("retention", s.opts.Retention),
	)
	return nil
}

// Stop ends the sweep loop, waits for it and releases the lock.
func (s *Sweeper) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running.Load() {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	<-s.done
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release sweeper lock", logging.Error(err))
	}
	s.running.Store(false)
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("cleanup failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single cleanup pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := s.cleaner.Cleanup(ctx, s.opts.Retention)

	s.runs.Add(1)
	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	s.removed.Add(removed)
	if removed > 0 {
		s.logger.Info("removed processed rows", logging.Int64("removed", removed))
	} else {
		s.logger.Debug("nothing to remove")
	}
	return removed, nil
}

// Status returns a snapshot of sweeper activity.
func (s *Sweeper) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:   s.running.Load(),
		Runs:      s.runs.Load(),
		Removed:   s.removed.Load(),
		LastRun:   s.lastRun,
		LockPath:  s.opts.LockPath,
		Interval:  s.opts.Interval,
		Retention: s.opts.Retention,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}
