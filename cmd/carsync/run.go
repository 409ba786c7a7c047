package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"carsync/internal/batch"
	"carsync/internal/domain"
	"carsync/internal/failurelog"
	"carsync/internal/metrics"
	"carsync/internal/metrics/datadog"
	"carsync/internal/metrics/prompush"
	"carsync/internal/normalize"
	"carsync/internal/schedule"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass over the vehicle table",
		Long: `Run one reconciliation pass.

Every vehicle is read in id order. Its brand, model, type and fuel text is
normalized, resolved to a lookup id (creating the lookup row when missing)
and written to the matching foreign-key column. Problems with one record are
logged and counted; only a failure to read the vehicle table aborts the pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkConfig(); err != nil {
				return err
			}
			runID := newRunID()
			flush, err := a.setupMetrics(map[string]string{"run_id": runID})
			if err != nil {
				return err
			}
			defer flush()

			rep, err := a.runPass(cmd.Context(), runID)
			printReport(a.out, rep)
			return err
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Repeat the reconciliation pass on a cron schedule",
		Long: `Repeat the reconciliation pass on the --cron spec until interrupted.

A pass that is still running when the next tick fires is not overlapped; the
tick is skipped. A failed pass is logged and the schedule carries on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkConfig(); err != nil {
				return err
			}
			flush, err := a.setupMetrics(nil)
			if err != nil {
				return err
			}
			defer flush()

			job := func(ctx context.Context) error {
				rep, err := a.runPass(ctx, newRunID())
				if ferr := metrics.Flush(); ferr != nil {
					a.log.Warn("metrics flush failed", zap.Error(ferr))
				}
				if err != nil {
					return err
				}
				a.log.Info("pass report", rep.Fields()...)
				return nil
			}

			var opts []schedule.Option
			if runNow {
				opts = append(opts, schedule.WithRunNow())
			}
			s, err := schedule.New(a.cfg.Cron, job, a.log, opts...)
			if err != nil {
				return err
			}
			if err := s.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "Also run one pass immediately")
	return cmd
}

// runPass opens the store and the optional failure log, then drives one pass.
func (a *app) runPass(ctx context.Context, runID string) (batch.Report, error) {
	log := a.log.With(zap.String("run_id", runID))

	exceptions, err := normalize.LoadExceptions(a.cfg.ExceptionsFile)
	if err != nil {
		return batch.Report{RunID: runID}, err
	}

	var failures *failurelog.Log
	if a.cfg.FailuresCSV != "" {
		l, closeFn, err := failurelog.Open(a.cfg.FailuresCSV)
		if err != nil {
			return batch.Report{RunID: runID}, err
		}
		defer func() {
			if err := closeFn(); err != nil {
				log.Warn("close failure log", zap.Error(err))
			}
		}()
		failures = l
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return batch.Report{RunID: runID}, err
	}
	defer store.Close()

	d := batch.NewDriver(store, batch.Config{
		Delay:         a.cfg.Delay,
		ProgressEvery: a.cfg.ProgressEvery,
		Preload:       a.cfg.Preload,
		Job:           a.cfg.Job,
		Normalizer:    normalize.New(exceptions),
		Logger:        a.log,
		Failures:      failures,
	})
	return d.Run(ctx, runID)
}

// setupMetrics installs the configured metrics backend and returns a func
// that flushes and releases it. grouping only applies to the Pushgateway.
func (a *app) setupMetrics(grouping map[string]string) (func(), error) {
	switch a.cfg.MetricsBackend {
	case "", "none":
		return func() {}, nil

	case "pushgateway":
		b, err := prompush.NewBackend(a.cfg.Job, a.cfg.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		for k, v := range grouping {
			b.WithGrouping(k, v)
		}
		metrics.SetBackend(b)
		a.log.Debug("metrics enabled", zap.String("backend", "pushgateway"), zap.String("url", a.cfg.PushgatewayURL))
		return func() {
			if err := metrics.Flush(); err != nil {
				a.log.Warn("metrics flush failed", zap.Error(err))
			}
			metrics.Reset()
		}, nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       a.cfg.DatadogAddr,
			Namespace:  "carsync.",
			GlobalTags: []string{"job:" + a.cfg.Job},
		})
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
		a.log.Debug("metrics enabled", zap.String("backend", "datadog"), zap.String("addr", a.cfg.DatadogAddr))
		return func() {
			if err := b.Close(); err != nil {
				a.log.Warn("metrics close failed", zap.Error(err))
			}
			metrics.Reset()
		}, nil
	}
	return nil, fmt.Errorf("unknown metrics backend %q", a.cfg.MetricsBackend)
}

func printReport(w io.Writer, rep batch.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
	fmt.Fprintf(tw, "vehicles\t%d of %d processed\n", rep.Processed, rep.Total)
	fmt.Fprintf(tw, "updated\t%d\n", rep.Updated)
	fmt.Fprintf(tw, "errored\t%d\n", rep.Errored)
	if rep.Preloaded > 0 {
		fmt.Fprintf(tw, "preloaded\t%d\n", rep.Preloaded)
	}
	fmt.Fprintln(tw, "\ndimension\tcached\tcreated\tfailed\twritten\twrite errors")
	for _, dim := range domain.Dimensions() {
		k := dim.Kind
		res := rep.Resolutions[k]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", dim, rep.CacheSizes[k], res.Created, res.Failed, rep.FieldWrites[k], rep.FieldWriteFailures[k])
	}
	fmt.Fprintf(tw, "\ndigest\t%s\n", batch.FormatDigest(rep.Digest))
	fmt.Fprintf(tw, "duration\t%s\n", rep.Duration.Round(time.Millisecond))
	_ = tw.Flush()
}
