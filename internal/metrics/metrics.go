// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the reconciliation pass.
//
// It exposes a narrow Backend interface (counters and timings) and a global,
// pluggable backend that defaults to a no-op, so instrumentation is always
// safe to call even when no metrics system is configured. Concrete systems
// live in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal           = "carsync_step_total"
	StepDurationSeconds = "carsync_step_duration_seconds"
	RecordsTotal        = "carsync_records_total"
	ResolutionsTotal    = "carsync_resolutions_total"
	FieldWritesTotal    = "carsync_field_writes_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Reset restores the no-op backend.
func Reset() { backend = nopBackend{} }

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of a named step
// ("fetch", "run", "preload").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRecord increments the per-record counter. kind is "updated" or
// "errored", mirroring the batch report.
func RecordRecord(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordResolution counts one resolver outcome for a dimension.
func RecordResolution(job, dimension, outcome string) {
	backend.IncCounter(ResolutionsTotal, 1, Labels{
		"job":       job,
		"dimension": dimension,
		"outcome":   outcome,
	})
}

// RecordFieldWrite counts one foreign-key update attempt.
func RecordFieldWrite(job, dimension string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	backend.IncCounter(FieldWritesTotal, 1, Labels{
		"job":       job,
		"dimension": dimension,
		"status":    status,
	})
}
