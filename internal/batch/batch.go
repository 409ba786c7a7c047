// Package batch drives one reconciliation pass over the whole vehicle table
// and produces the operator-facing Report.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carsync/internal/domain"
	"carsync/internal/failurelog"
	"carsync/internal/lookup"
	"carsync/internal/metrics"
	"carsync/internal/normalize"
	"carsync/internal/reconcile"

	"go.uber.org/zap"
)

// ErrFetch wraps a failure to list the vehicle table. It is the only error
// that aborts a pass.
var ErrFetch = errors.New("batch: fetch vehicles")

// Store is what a pass needs from the data store.
type Store interface {
	lookup.Store
	lookup.Lister
	reconcile.Sink
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// Config tunes a Driver. The zero value runs without delay, progress lines
// or preload.
type Config struct {
	Delay         time.Duration // pause between records
	ProgressEvery int           // log progress every N records; 0 disables
	Preload       bool          // warm the cache from the lookup tables first
	Job           string        // metrics job label

	Normalizer *normalize.Normalizer // nil means built-in exceptions
	Logger     *zap.Logger
	Failures   *failurelog.Log // nil disables the failure CSV
}

// Driver runs passes. Each Run gets its own resolution cache.
type Driver struct {
	store Store
	cfg   Config
	log   *zap.Logger
}

// NewDriver returns a Driver over store.
func NewDriver(store Store, cfg Config) *Driver {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.New(nil)
	}
	return &Driver{store: store, cfg: cfg, log: log}
}

// Run reconciles every vehicle in id order. Per-record problems only show up
// in the Report; Run returns an error when the vehicle list cannot be fetched
// (wrapping ErrFetch) or when ctx is cancelled, in which case the Report
// covers the records processed so far.
func (d *Driver) Run(ctx context.Context, runID string) (rep Report, err error) {
	start := time.Now()
	rep = newReport(runID)
	log := d.log.With(zap.String("run_id", runID))

	cache := lookup.NewCache()
	var resolver *lookup.Resolver
	digest := newDigester()

	defer func() {
		rep.Duration = time.Since(start)
		rep.CacheSizes = cache.Sizes()
		if resolver != nil {
			rep.Resolutions = resolver.Stats()
		}
		rep.Digest = digest.sum()
		if ferr := d.cfg.Failures.Flush(); ferr != nil {
			d.log.Warn("flush failure log", zap.Error(ferr))
		}

		metrics.RecordRecord(d.cfg.Job, "updated", int64(rep.Updated))
		metrics.RecordRecord(d.cfg.Job, "errored", int64(rep.Errored))
		metrics.RecordStep(d.cfg.Job, "run", err, rep.Duration)
	}()

	if d.cfg.Preload {
		rep.Preloaded = d.preload(ctx, log, cache)
	}

	fetchStart := time.Now()
	vehicles, ferr := d.store.ListVehicles(ctx)
	metrics.RecordStep(d.cfg.Job, "fetch", ferr, time.Since(fetchStart))
	if ferr != nil {
		log.Error("fetch vehicles failed", zap.Error(ferr))
		return rep, fmt.Errorf("%w: %w", ErrFetch, ferr)
	}
	rep.Total = len(vehicles)
	log.Info("pass started", zap.Int("total", rep.Total), zap.Duration("delay", d.cfg.Delay))

	var current int64
	resolver = lookup.NewResolver(d.store, cache,
		lookup.WithLogger(log),
		lookup.WithJob(d.cfg.Job),
		lookup.WithFailureFunc(func(dim domain.Dimension, name string, _ int64, err error) {
			d.cfg.Failures.Resolution(current, dim.String(), name, err)
		}),
	)
	rec := reconcile.New(resolver, d.store,
		reconcile.WithLogger(log),
		reconcile.WithJob(d.cfg.Job),
		reconcile.WithNormalizer(d.cfg.Normalizer),
		reconcile.WithWriteFailureFunc(func(vehicleID int64, dim domain.Dimension, name string, value int64, err error) {
			d.cfg.Failures.Write(vehicleID, dim.String(), name, value, err)
		}),
	)

	for i, v := range vehicles {
		if i > 0 {
			if err := sleep(ctx, d.cfg.Delay); err != nil {
				log.Warn("pass cancelled", zap.Int("processed", rep.Processed), zap.Int("total", rep.Total))
				return rep, err
			}
		} else if err := ctx.Err(); err != nil {
			return rep, err
		}

		current = v.ID
		res := rec.Reconcile(ctx, v)
		rep.add(res)
		digest.add(res)

		if !res.Updated() {
			log.Debug("vehicle not updated", zap.Int64("vehicle_id", v.ID))
		}
		if n := d.cfg.ProgressEvery; n > 0 && ((i+1)%n == 0 || i+1 == rep.Total) {
			log.Info("progress",
				zap.Int("index", i+1),
				zap.Int("total", rep.Total),
				zap.Float64("percent", percent(i+1, rep.Total)),
			)
		}
	}

	rep.Duration = time.Since(start)
	rep.CacheSizes = cache.Sizes()
	rep.Digest = digest.sum()
	log.Info("pass complete", rep.Fields()...)
	return rep, nil
}

func (d *Driver) preload(ctx context.Context, log *zap.Logger, cache *lookup.Cache) int {
	start := time.Now()
	n, err := lookup.Preload(ctx, d.store, cache)
	metrics.RecordStep(d.cfg.Job, "preload", err, time.Since(start))
	if err != nil {
		log.Warn("cache preload failed, continuing cold", zap.Error(err))
		return 0
	}
	log.Info("cache preloaded", zap.Int("entries", n), zap.Duration("elapsed", time.Since(start)))
	return n
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func percent(i, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(i) * 100 / float64(total)
}
