package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rowq/internal/config"
	"rowq/internal/logging"
	"rowq/internal/token"
)

// Store manages queue persistence for one queue table.
type Store struct {
	db       *sql.DB
	dialect  dialect
	table    string
	policy   Policy
	location string
	dataDir  string
	logger   *slog.Logger
	now      func() time.Time
	tokens   *token.Generator
	q        queries

	// afterProcessed runs inside the retention transaction once the row has
	// been marked or deleted. A non-nil error rolls that step back.
	afterProcessed func(ctx context.Context, item *Item) error
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the time source used for created_at, updated_at and
// the Cleanup cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPolicy overrides queue.on_processed from the configuration. The value is
// not validated here; an unknown policy surfaces as a ConfigError on claim.
func WithPolicy(policy Policy) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy repeats op while SQLite reports lock contention. Any other
// error is returned immediately.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Open connects to the configured database and ensures the queue table exists.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("queue: nil config")
	}
	if !config.IsValidIdentifier(cfg.Queue.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, cfg.Queue.Table)
	}
	d, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	var dsn, location, dataDir string
	switch d.name {
	case config.DriverSQLite:
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		location = cfg.DatabasePath()
		dataDir = filepath.Dir(location)
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = sqliteDSN(location)
	case config.DriverPostgres:
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			return nil, errors.New("queue: database.dsn is required for postgres")
		}
		dsn = cfg.Database.DSN
		location = redactDSN(dsn)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.name, err)
	}

	store := &Store{
		db:       db,
		dialect:  d,
		table:    cfg.Queue.Table,
		policy:   Policy(cfg.Queue.OnProcessed),
		location: location,
		dataDir:  dataDir,
		logger:   logging.NewNop(),
		now:      time.Now,
		tokens:   token.NewGenerator(),
	}
	for _, opt := range opts {
		opt(store)
	}
	store.logger = logging.NewComponentLogger(store.logger, "queue")
	store.q = buildQueries(d, store.table)

	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store.logger.Debug("queue store opened",
		logging.String("driver", d.name),
		logging.String("location", location),
		logging.String("table", store.table),
		logging.String("policy", string(store.policy)),
	)
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Policy returns the retention policy applied after a claim.
func (s *Store) Policy() Policy { return s.policy }

// Table returns the queue table name.
func (s *Store) Table() string { return s.table }

// Driver returns the database driver name ("sqlite" or "postgres").
func (s *Store) Driver() string { return s.dialect.name }

// Location returns the SQLite file path or the redacted PostgreSQL DSN.
func (s *Store) Location() string { return s.location }
