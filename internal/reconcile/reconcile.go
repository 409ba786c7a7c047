// Package reconcile backfills the four foreign keys of one vehicle record:
// it normalizes the free-text attributes, resolves them to lookup ids and
// writes each resolved id as its own single-column update.
package reconcile

import (
	"context"
	"strings"

	"carsync/internal/domain"
	"carsync/internal/lookup"
	"carsync/internal/metrics"
	"carsync/internal/normalize"

	"go.uber.org/zap"
)

// Sink persists one foreign key on one vehicle.
type Sink interface {
	UpdateField(ctx context.Context, vehicleID int64, dim domain.Dimension, value int64) error
}

// Status is the outcome of one dimension for one record.
type Status string

const (
	// StatusSkipped means the source text was blank; nothing was attempted.
	StatusSkipped Status = "skipped"
	// StatusUnresolved means the text was present but no id was obtained
	// (store failure, or a model whose brand did not resolve).
	StatusUnresolved Status = "unresolved"
	StatusWritten    Status = "written"
	StatusWriteFail  Status = "write_failed"
)

// Field is the per-dimension part of a Result.
type Field struct {
	Dimension domain.Dimension
	Name      string // normalized text
	ID        int64  // resolved id; 0 when unresolved
	Status    Status
	Err       error // write error for StatusWriteFail
}

// Result describes what happened to one vehicle.
type Result struct {
	VehicleID int64
	Fields    [4]Field // indexed by domain.Kind
}

// Written counts the foreign keys successfully updated.
func (r Result) Written() int {
	n := 0
	for _, f := range r.Fields {
		if f.Status == StatusWritten {
			n++
		}
	}
	return n
}

// Updated reports whether at least one foreign key was written.
func (r Result) Updated() bool { return r.Written() > 0 }

// ID returns the id resolved for k, 0 if none.
func (r Result) ID(k domain.Kind) int64 { return r.Fields[k].ID }

// WriteFailureFunc is notified of every failed field update.
type WriteFailureFunc func(vehicleID int64, dim domain.Dimension, name string, value int64, err error)

// Reconciler processes vehicle records one at a time.
type Reconciler struct {
	resolver *lookup.Resolver
	sink     Sink
	norm     *normalize.Normalizer
	log      *zap.Logger
	job      string
	onWrite  WriteFailureFunc
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for write failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithNormalizer replaces the default normalizer (built-in exceptions only).
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(r *Reconciler) {
		if n != nil {
			r.norm = n
		}
	}
}

// WithJob sets the job label attached to metrics.
func WithJob(job string) Option { return func(r *Reconciler) { r.job = job } }

// WithWriteFailureFunc registers fn to be told about failed field updates.
func WithWriteFailureFunc(fn WriteFailureFunc) Option {
	return func(r *Reconciler) { r.onWrite = fn }
}

// New returns a Reconciler resolving through resolver and writing to sink.
func New(resolver *lookup.Resolver, sink Sink, opts ...Option) *Reconciler {
	r := &Reconciler{
		resolver: resolver,
		sink:     sink,
		norm:     normalize.New(nil),
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile resolves and writes the four foreign keys of v. It never fails as
// a whole: problems are logged and reflected in the Result. The model is only
// resolved once the brand is, since models are scoped to a brand.
func (r *Reconciler) Reconcile(ctx context.Context, v domain.Vehicle) Result {
	res := Result{VehicleID: v.ID}
	ctx = lookup.WithVehicleID(ctx, v.ID)

	for _, dim := range domain.Dimensions() {
		f := &res.Fields[dim.Kind]
		f.Dimension = dim
		f.Name = r.norm.Apply(dim.Kind, v.Text(dim.Kind))

		if strings.TrimSpace(f.Name) == "" {
			f.Status = StatusSkipped
			continue
		}

		var parentID int64
		if dim.HasParent() {
			parentID = res.Fields[domain.Brand].ID
			if parentID == 0 {
				f.Status = StatusUnresolved
				continue
			}
		}

		id, ok := r.resolver.Resolve(ctx, dim, f.Name, parentID)
		if !ok {
			f.Status = StatusUnresolved
			continue
		}
		f.ID = id
	}

	// Each resolved key is written on its own so one failing column does
	// not block the others.
	for i := range res.Fields {
		f := &res.Fields[i]
		if f.ID == 0 {
			continue
		}
		err := r.sink.UpdateField(ctx, v.ID, f.Dimension, f.ID)
		metrics.RecordFieldWrite(r.job, f.Dimension.String(), err)
		if err != nil {
			f.Status = StatusWriteFail
			f.Err = err
			r.log.Warn("field update failed",
				zap.Int64("vehicle_id", v.ID),
				zap.String("field", f.Dimension.FKColumn),
				zap.Int64("value", f.ID),
				zap.Error(err),
			)
			if r.onWrite != nil {
				r.onWrite(v.ID, f.Dimension, f.Name, f.ID, err)
			}
			continue
		}
		f.Status = StatusWritten
	}
	return res
}
