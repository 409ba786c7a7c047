// Command carsync backfills the brand, model, vehicle type and fuel type
// foreign keys of a vehicle inventory table from its free-text columns.
//
// Subcommands:
//
//	run          one reconciliation pass over the whole table
//	schedule     repeat the pass on a cron spec until interrupted
//	init-schema  create the lookup tables and the vehicle table when missing
//	stats        print lookup sizes and vehicles still missing each key
//	validate     lint the configuration and exit
//
// Every flag can also be set through the environment (see --help); a .env
// file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"carsync/internal/config"
	"carsync/internal/logging"
	"carsync/internal/storage"

	// register all backends with the storage factory.
	_ "carsync/internal/storage/all"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Function variables used as test seams.
var (
	newLogger = logging.New
	openStore = storage.New
	newRunID  = func() string { return uuid.NewString() }
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "carsync:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "carsync",
		Short:         "Backfill vehicle lookup foreign keys from free-text attributes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			log, err := newLogger(logging.Options{Verbose: a.cfg.Verbose, Format: a.cfg.LogFormat})
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	a.cfg = config.Bind(root.PersistentFlags(), getenv)

	root.AddCommand(
		newRunCmd(a),
		newScheduleCmd(a),
		newInitSchemaCmd(a),
		newStatsCmd(a),
		newValidateCmd(a),
	)
	return root
}

// checkConfig logs warnings and fails on errors.
func (a *app) checkConfig() error {
	issues := config.Validate(a.cfg, storage.ListKinds())
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			a.log.Warn("config", zap.String("flag", iss.Path), zap.String("issue", iss.Message))
		}
	}
	if config.HasErrors(issues) {
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				a.log.Error("config", zap.String("flag", iss.Path), zap.String("issue", iss.Message))
			}
		}
		return fmt.Errorf("invalid configuration; run \"carsync validate\" for details")
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	s, err := openStore(ctx, a.cfg.Storage())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.DBDriver, err)
	}
	return s, nil
}
