package config

import (
	"fmt"
	"os"
	"strings"

	"carsync/internal/storage"

	"github.com/robfig/cron/v3"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to the operator but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is the flag name.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints c. kinds lists the registered storage backends. It never
// mutates c.
func Validate(c *Config, kinds []string) []Issue {
	var issues []Issue
	errorf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	known := false
	for _, k := range kinds {
		if k == c.DBDriver {
			known = true
			break
		}
	}
	if !known {
		errorf("db-driver", "unknown driver %q; available: %s", c.DBDriver, strings.Join(kinds, ", "))
	}

	switch c.DBDriver {
	case "memory":
	case "postgres":
		if c.DSN == "" && (c.DBHost == "" || c.DBName == "") {
			errorf("dsn", "postgres needs --dsn or both --db-host and --db-name")
		}
		if c.DSN == "" && c.DBUser == "" {
			warnf("db-user", "no database user configured")
		}
	default:
		if strings.TrimSpace(c.DSN) == "" {
			errorf("dsn", "%s requires --dsn", c.DBDriver)
		}
	}

	if err := storage.ValidateIdent(c.VehicleTable); err != nil {
		errorf("vehicle-table", "%v", err)
	}

	if c.Delay < 0 {
		errorf("delay", "must not be negative, got %s", c.Delay)
	} else if c.Delay == 0 {
		warnf("delay", "no pause between records; the store will see the full request rate")
	}
	if c.ProgressEvery < 0 {
		errorf("progress-every", "must not be negative, got %d", c.ProgressEvery)
	}

	if c.ExceptionsFile != "" {
		if _, err := os.Stat(c.ExceptionsFile); err != nil {
			errorf("exceptions-file", "%v", err)
		}
	}

	switch c.MetricsBackend {
	case "", "none":
	case "pushgateway":
		if c.PushgatewayURL == "" {
			errorf("pushgateway-url", "required when --metrics-backend=pushgateway")
		}
	case "datadog":
		if c.DatadogAddr == "" {
			errorf("datadog-addr", "required when --metrics-backend=datadog")
		}
	default:
		errorf("metrics-backend", "unknown backend %q; use none, pushgateway or datadog", c.MetricsBackend)
	}
	if strings.TrimSpace(c.Job) == "" {
		errorf("job", "must not be empty; it labels every metric")
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		errorf("log-format", "unknown format %q; use json or console", c.LogFormat)
	}

	if _, err := cron.ParseStandard(c.Cron); err != nil {
		errorf("cron", "invalid spec %q: %v", c.Cron, err)
	}

	return issues
}
