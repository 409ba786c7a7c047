package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

var kinds = []string{"memory", "mssql", "mysql", "postgres", "sqlite"}

func validBase() *Config {
	return &Config{
		DBDriver:       "postgres",
		DBUser:         "u",
		DBHost:         "localhost",
		DBPort:         "5432",
		DBName:         "cars",
		VehicleTable:   "cars_v2",
		Delay:          300_000_000,
		ProgressEvery:  1,
		MetricsBackend: "none",
		Job:            "carsync",
		LogFormat:      "json",
		Cron:           "0 3 * * *",
	}
}

func paths(issues []Issue, sev IssueSeverity) []string {
	var out []string
	for _, iss := range issues {
		if iss.Severity == sev {
			out = append(out, iss.Path)
		}
	}
	return out
}

func TestValidateOK(t *testing.T) {
	t.Parallel()

	issues := Validate(validBase(), kinds)
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(c *Config)
		path   string
	}{
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, "db-driver"},
		{"mysql without dsn", func(c *Config) { c.DBDriver = "mysql" }, "dsn"},
		{"postgres without host or dsn", func(c *Config) { c.DBName = "" }, "dsn"},
		{"bad table", func(c *Config) { c.VehicleTable = "cars; drop" }, "vehicle-table"},
		{"negative delay", func(c *Config) { c.Delay = -1 }, "delay"},
		{"negative progress", func(c *Config) { c.ProgressEvery = -5 }, "progress-every"},
		{"unknown metrics backend", func(c *Config) { c.MetricsBackend = "graphite" }, "metrics-backend"},
		{"pushgateway without url", func(c *Config) { c.MetricsBackend = "pushgateway"; c.PushgatewayURL = "" }, "pushgateway-url"},
		{"datadog without addr", func(c *Config) { c.MetricsBackend = "datadog"; c.DatadogAddr = "" }, "datadog-addr"},
		{"empty job", func(c *Config) { c.Job = " " }, "job"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
		{"bad cron", func(c *Config) { c.Cron = "every day" }, "cron"},
		{"missing exceptions file", func(c *Config) { c.ExceptionsFile = "/does/not/exist.yaml" }, "exceptions-file"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := validBase()
			tc.mutate(c)
			issues := Validate(c, kinds)
			assert.True(t, HasErrors(issues))
			assert.Contains(t, paths(issues, SeverityError), tc.path)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.Delay = 0
	c.DBUser = ""
	issues := Validate(c, kinds)

	assert.False(t, HasErrors(issues))
	assert.ElementsMatch(t, []string{"delay", "db-user"}, paths(issues, SeverityWarning))
}

func TestValidateMemoryNeedsNoDSN(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.DBDriver = "memory"
	c.DBHost, c.DBName = "", ""
	assert.False(t, HasErrors(Validate(c, kinds)))
}

func TestValidateExistingExceptionsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("models: [RCZ]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := validBase()
	c.ExceptionsFile = path
	assert.Empty(t, Validate(c, kinds))
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "dsn", Message: "mysql requires --dsn"}
	assert.Equal(t, "error at dsn: mysql requires --dsn", iss.Error())
}
