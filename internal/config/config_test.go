package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"rowq/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ROWQ_DATABASE_DRIVER", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "rowq")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "queue.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Queue.Table != "queue_items" {
		t.Fatalf("unexpected table: %q", cfg.Queue.Table)
	}
	if cfg.Queue.OnProcessed != "mark" {
		t.Fatalf("expected mark retention policy, got %q", cfg.Queue.OnProcessed)
	}
	if cfg.Sweeper.Retention != 3600 {
		t.Fatalf("expected one hour retention, got %d", cfg.Sweeper.Retention)
	}
	if !cfg.Sweeper.Enabled {
		t.Fatal("expected sweeper enabled by default")
	}
	if cfg.Worker.Concurrency != 1 {
		t.Fatalf("expected concurrency 1, got %d", cfg.Worker.Concurrency)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "rowq.toml")

	custom := config.Default()
	custom.Paths.DataDir = filepath.Join(dir, "data")
	custom.Paths.LogDir = filepath.Join(dir, "logs")
	custom.Queue.Table = "mail_jobs"
	custom.Queue.OnProcessed = " DESTROY "
	custom.Worker.Queue = " mailer "
	custom.Worker.Concurrency = 4
	custom.Sweeper.Retention = 604800
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to exist, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Queue.Table != "mail_jobs" {
		t.Fatalf("unexpected table: %q", cfg.Queue.Table)
	}
	if cfg.Queue.OnProcessed != "destroy" {
		t.Fatalf("expected normalized policy, got %q", cfg.Queue.OnProcessed)
	}
	if cfg.Worker.Queue != "mailer" {
		t.Fatalf("expected trimmed worker queue, got %q", cfg.Worker.Queue)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Fatalf("unexpected concurrency: %d", cfg.Worker.Concurrency)
	}
	if cfg.Sweeper.Retention != 604800 {
		t.Fatalf("unexpected retention: %d", cfg.Sweeper.Retention)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadKeepsUnknownRetentionPolicy(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "rowq.toml")
	if err := os.WriteFile(path, []byte("[queue]\non_processed = \"archive\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("unknown policy must not fail at load time: %v", err)
	}
	if cfg.Queue.OnProcessed != "archive" {
		t.Fatalf("expected policy passed through, got %q", cfg.Queue.OnProcessed)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "rowq.toml")
	if err := os.WriteFile(path, []byte("[queue]\nname = \"oops\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestPostgresDriverUsesEnvDSN(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROWQ_DATABASE_DRIVER", "postgresql")
	t.Setenv("ROWQ_DATABASE_DSN", " postgres://localhost/rowq ")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://localhost/rowq" {
		t.Fatalf("unexpected dsn: %q", cfg.Database.DSN)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres dsn", func(c *config.Config) { c.Database.Driver = config.DriverPostgres }, "database.dsn"},
		{"table", func(c *config.Config) { c.Queue.Table = "jobs; DROP TABLE x" }, "queue.table"},
		{"poll interval", func(c *config.Config) { c.Worker.PollInterval = 0 }, "worker.poll_interval"},
		{"retention", func(c *config.Config) { c.Sweeper.Retention = -1 }, "sweeper.retention"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"queue_items", "_q", "Jobs2"}
	for _, name := range valid {
		if !config.IsValidIdentifier(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	invalid := []string{"", "2jobs", "jobs-table", "jobs table", "jöbs"}
	for _, name := range invalid {
		if config.IsValidIdentifier(name) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Queue.OnProcessed != "mark" {
		t.Fatalf("unexpected sample policy: %q", cfg.Queue.OnProcessed)
	}
}
