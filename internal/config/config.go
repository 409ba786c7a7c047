// Package config centralizes carsync configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable,
// so the same binary works from a shell, a .env file or a container spec.
//
// Typical usage from a cobra command:
//
//	cfg := config.Bind(cmd.Flags(), os.Getenv)
//	// cobra parses the flags; cfg is populated afterwards.
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"--delay=0s"})
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carsync/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds all process configuration derived from flags and
// environment variables.
type Config struct {
	// DB describes the data store. For Postgres, DSN is optional and is
	// built from the discrete DB* parts when empty.
	DBDriver   string
	DSN        string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	VehicleTable string

	// Pass tunables.
	Delay          time.Duration
	ProgressEvery  int
	Preload        bool
	ExceptionsFile string
	FailuresCSV    string

	// Observability.
	MetricsBackend string // none, pushgateway, datadog
	PushgatewayURL string
	DatadogAddr    string
	Job            string
	LogFormat      string // json or console
	Verbose        bool

	Cron string // schedule subcommand only
}

// Bind defines every flag on fs, seeding defaults from getenv, and returns
// the Config the flags write into. Values are final once fs is parsed.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags override the seeded defaults.
func Bind(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{}

	env := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnv := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnv := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}
	durationEnv := func(k string, d time.Duration) time.Duration {
		if v, err := parseDelay(getenv(k)); err == nil {
			return v
		}
		return d
	}

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db-driver", env("DB_DRIVER", "postgres"), "Storage backend: "+strings.Join(storage.ListKinds(), ", "))
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for every driver but postgres and memory)")
	fs.StringVar(&cfg.DBUser, "db-user", getenv("DB_USER"), "Postgres user (used when --dsn is empty)")
	fs.StringVar(&cfg.DBPassword, "db-password", getenv("DB_PASSWORD"), "Postgres password (used when --dsn is empty)")
	fs.StringVar(&cfg.DBHost, "db-host", env("DB_HOST", "localhost"), "Postgres host (used when --dsn is empty)")
	fs.StringVar(&cfg.DBPort, "db-port", env("DB_PORT", "5432"), "Postgres port (used when --dsn is empty)")
	fs.StringVar(&cfg.DBName, "db-name", getenv("DB_NAME"), "Postgres database (used when --dsn is empty)")
	fs.StringVar(&cfg.DBSSLMode, "db-sslmode", getenv("DB_SSLMODE"), "Postgres sslmode, e.g. require for Supabase")
	fs.StringVar(&cfg.VehicleTable, "vehicle-table", env("VEHICLE_TABLE", "cars_v2"), "Vehicle table, optionally schema-qualified")

	// Pass tunables
	fs.DurationVar(&cfg.Delay, "delay", durationEnv("RECORD_DELAY", 300*time.Millisecond), "Pause between records")
	fs.IntVar(&cfg.ProgressEvery, "progress-every", intEnv("PROGRESS_EVERY", 1), "Log progress every N records (0 disables)")
	fs.BoolVar(&cfg.Preload, "preload", boolEnv("PRELOAD_CACHE", false), "Load existing lookup rows into the cache before the scan")
	fs.StringVar(&cfg.ExceptionsFile, "exceptions-file", getenv("MODEL_EXCEPTIONS_FILE"), "YAML file with extra upper-case model names")
	fs.StringVar(&cfg.FailuresCSV, "failures-csv", getenv("FAILURES_CSV"), "Write failed resolutions and field updates to this CSV")

	// Observability
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", env("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", env("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway URL")
	fs.StringVar(&cfg.DatadogAddr, "datadog-addr", env("DATADOG_ADDR", "127.0.0.1:8125"), "DogStatsD address")
	fs.StringVar(&cfg.Job, "job", env("JOB_NAME", "carsync"), "Job name for metrics")
	fs.StringVar(&cfg.LogFormat, "log-format", env("LOG_FORMAT", "json"), "Log format: json or console")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", boolEnv("VERBOSE", false), "Debug logging")

	fs.StringVar(&cfg.Cron, "cron", env("SCHEDULE_CRON", "0 3 * * *"), "Cron spec for the schedule command")

	return cfg
}

// LoadFromArgs binds flags on fs and parses args. It is the hermetic entry
// point used by tests.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Bind(fs, getenv)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment. Variables already set win, and missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// StoreDSN returns the DSN to open. For postgres with no explicit DSN it is
// built from the discrete DB* settings.
func (c *Config) StoreDSN() string {
	if c.DSN != "" || c.DBDriver != "postgres" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.DBSSLMode}}.Encode()
	}
	return u.String()
}

// Storage returns the storage.Config for c.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		Kind:         c.DBDriver,
		DSN:          c.StoreDSN(),
		VehicleTable: c.VehicleTable,
	}
}

// parseDelay accepts Go durations ("300ms", "1s") and bare integers, which
// are read as milliseconds.
func parseDelay(v string) (time.Duration, error) {
	if v == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}
