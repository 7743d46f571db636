package config

const (
	defaultConfigPath         = "~/.config/rowq/config.toml"
	defaultDataDir            = "~/.local/share/rowq"
	defaultLogDir             = "~/.local/share/rowq/logs"
	defaultTable              = "queue_items"
	defaultOnProcessed        = "mark"
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultConcurrency        = 1
	defaultSweeperInterval    = 300
	defaultSweeperRetention   = 3600
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Database: Database{
			Driver: DriverSQLite,
		},
		Queue: Queue{
			Table:       defaultTable,
			OnProcessed: defaultOnProcessed,
		},
		Worker: Worker{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			Concurrency:        defaultConcurrency,
		},
		Sweeper: Sweeper{
			Enabled:   true,
			Interval:  defaultSweeperInterval,
			Retention: defaultSweeperRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
