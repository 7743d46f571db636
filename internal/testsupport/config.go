package testsupport

import (
	"path/filepath"
	"testing"

	"rowq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to SQLite in the temp data directory and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Database.Driver = config.DriverSQLite
	cfgVal.Database.DSN = ""
	cfgVal.Worker.PollInterval = 1
	cfgVal.Worker.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPolicy sets queue.on_processed.
func WithPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.OnProcessed = policy
	}
}

// WithTable sets queue.table.
func WithTable(table string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Table = table
	}
}

// WithPostgres switches the config to PostgreSQL using dsn.
func WithPostgres(dsn string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.Driver = config.DriverPostgres
		b.cfg.Database.DSN = dsn
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
