package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"rowq/internal/config"
	"rowq/internal/logging"
	"rowq/internal/queue"
	"rowq/internal/sweeper"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Once runs a single sweep and exits instead of looping.
	Once bool
}

// Run starts the rowqd runtime loop and blocks until SIGINT, SIGTERM or
// cancellation of cmdCtx.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "rowqd.log")
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "rowqd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg, queue.WithLogger(logger))
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	logStartup(logger, cfg, store)

	if !cfg.Sweeper.Enabled {
		logger.Warn("sweeper disabled; rowqd has nothing to do",
			logging.String(logging.FieldEventType, "sweeper_disabled"),
			logging.String(logging.FieldErrorHint, "set sweeper.enabled = true"),
		)
		return errors.New("sweeper disabled in configuration")
	}

	sw, err := sweeper.New(store, sweeper.OptionsFromConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("create sweeper: %w", err)
	}

	if opts.Once {
		removed, err := sw.SweepOnce(signalCtx)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		logger.Info("single sweep finished", logging.Int64("removed", removed))
		return nil
	}

	if err := sw.Start(signalCtx); err != nil {
		logger.Error("sweeper start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sweeper_start_failed"),
			logging.String(logging.FieldErrorHint, "stop the other rowqd or remove a stale lock file"),
		)
		return err
	}
	defer sw.Stop()

	<-signalCtx.Done()
	logger.Info("rowqd shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartup(logger *slog.Logger, cfg *config.Config, store *queue.Store) {
	if logger == nil || cfg == nil || store == nil {
		return
	}
	logger.Info("rowqd starting",
		logging.String(logging.FieldEventType, "startup_snapshot"),
		logging.String("driver", store.Driver()),
		logging.String("location", store.Location()),
		logging.String("table", store.Table()),
		logging.String("policy", string(store.Policy())),
		logging.Bool("sweeper_enabled", cfg.Sweeper.Enabled),
		logging.Int("sweeper_interval_seconds", cfg.Sweeper.Interval),
		logging.Int("sweeper_retention_seconds", cfg.Sweeper.Retention),
	)
}
