// Package lookup resolves canonical attribute names to lookup-table ids,
// creating rows on first use and memoizing results for the rest of the run.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carsync/internal/domain"
	"carsync/internal/metrics"

	"go.uber.org/zap"
)

// ErrUnexpectedShape is returned when the store answers with something the
// resolver cannot use as an id.
var ErrUnexpectedShape = errors.New("lookup: unexpected store response")

// Store is the lookup-table side of the data store.
type Store interface {
	// FindByName returns the id of the row named name (scoped to parentID for
	// dimensions with a parent). found is false when no row matches.
	FindByName(ctx context.Context, dim domain.Dimension, name string, parentID int64) (id int64, found bool, err error)
	// Insert creates a row and returns its assigned id.
	Insert(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, error)
}

type vehicleKey struct{}

// WithVehicleID tags ctx with the vehicle being reconciled, so resolution
// failures can be traced back to the record that triggered them.
func WithVehicleID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, vehicleKey{}, id)
}

// VehicleID returns the id set by WithVehicleID.
func VehicleID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(vehicleKey{}).(int64)
	return id, ok
}

// Outcome classifies one Resolve call.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeFound    Outcome = "found"
	OutcomeCreated  Outcome = "created"
	OutcomeFailed   Outcome = "failed"
)

// Counts tallies outcomes for one dimension.
type Counts struct {
	Skipped   int
	CacheHits int
	Found     int
	Created   int
	Failed    int
}

func (c *Counts) add(o Outcome) {
	switch o {
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeCacheHit:
		c.CacheHits++
	case OutcomeFound:
		c.Found++
	case OutcomeCreated:
		c.Created++
	case OutcomeFailed:
		c.Failed++
	}
}

// FailureFunc is notified of every failed resolution.
type FailureFunc func(dim domain.Dimension, name string, parentID int64, err error)

// Resolver maps names to ids through a Store, memoizing in a Cache.
type Resolver struct {
	store     Store
	cache     *Cache
	log       *zap.Logger
	job       string
	counts    [4]Counts
	onFailure FailureFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithJob sets the job label attached to metrics.
func WithJob(job string) Option { return func(r *Resolver) { r.job = job } }

// WithFailureFunc registers fn to be told about failed resolutions.
func WithFailureFunc(fn FailureFunc) Option { return func(r *Resolver) { r.onFailure = fn } }

// NewResolver returns a Resolver over store. The cache is owned by the caller
// and defines the memoization scope; a nil cache gets a private one.
func NewResolver(store Store, cache *Cache, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	r := &Resolver{store: store, cache: cache, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Cache returns the cache backing the resolver.
func (r *Resolver) Cache() *Cache { return r.cache }

// Stats returns the outcome counts per kind.
func (r *Resolver) Stats() map[domain.Kind]Counts {
	out := make(map[domain.Kind]Counts, len(r.counts))
	for _, d := range domain.Dimensions() {
		out[d.Kind] = r.counts[d.Kind]
	}
	return out
}

// Resolve returns the id for name in dim, creating the row if absent.
// parentID scopes the lookup for dimensions with a parent and is ignored
// otherwise. A blank name resolves to nothing without touching the store.
// Store failures are logged and reported as ok == false; they are never
// retried here.
func (r *Resolver) Resolve(ctx context.Context, dim domain.Dimension, name string, parentID int64) (id int64, ok bool) {
	start := time.Now()
	id, outcome, err := r.resolve(ctx, dim, name, parentID)
	r.counts[dim.Kind].add(outcome)
	metrics.RecordResolution(r.job, dim.String(), string(outcome))

	if err != nil {
		fields := []zap.Field{
			zap.Stringer("dimension", dim),
			zap.String("name", name),
			zap.Int64("parent_id", parentID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		}
		if vid, ok := VehicleID(ctx); ok {
			fields = append(fields, zap.Int64("vehicle_id", vid))
		}
		r.log.Warn("resolution failed", fields...)
		if r.onFailure != nil {
			r.onFailure(dim, name, parentID, err)
		}
		return 0, false
	}
	return id, outcome != OutcomeSkipped
}

func (r *Resolver) resolve(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, Outcome, error) {
	if strings.TrimSpace(name) == "" {
		return 0, OutcomeSkipped, nil
	}
	if dim.HasParent() && parentID <= 0 {
		return 0, OutcomeFailed, fmt.Errorf("%s %q: missing parent id", dim, name)
	}

	if id, ok := r.cache.Get(dim, name, parentID); ok {
		return id, OutcomeCacheHit, nil
	}

	id, found, err := r.store.FindByName(ctx, dim, name, parentID)
	if err != nil {
		return 0, OutcomeFailed, fmt.Errorf("find %s %q: %w", dim, name, err)
	}
	outcome := OutcomeFound
	if !found {
		id, err = r.store.Insert(ctx, dim, name, parentID)
		if err != nil {
			return 0, OutcomeFailed, fmt.Errorf("insert %s %q: %w", dim, name, err)
		}
		outcome = OutcomeCreated
	}
	if id <= 0 {
		return 0, OutcomeFailed, fmt.Errorf("%s %q: id %d: %w", dim, name, id, ErrUnexpectedShape)
	}

	r.cache.Put(dim, name, parentID, id)
	return id, outcome, nil
}
