// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A reconciliation pass is a short-lived batch job, so there is no scrape
// endpoint: collectors live in a private registry that is pushed to the
// Pushgateway on Flush. All Prometheus-specific dependencies stay in this
// package.
package prompush

import (
	"fmt"

	"carsync/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	grouping   map[string]string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // carsync_step_total
	stepDuration *prometheus.SummaryVec // carsync_step_duration_seconds

	recordCounter     *prometheus.CounterVec // carsync_records_total
	resolutionCounter *prometheus.CounterVec // carsync_resolutions_total
	fieldWriteCounter *prometheus.CounterVec // carsync_field_writes_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name; empty means "carsync".
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "carsync"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Total number of pass steps, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of pass steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Vehicle records processed, by kind (updated, errored).",
		},
		[]string{"kind"},
	)
	resolutionCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ResolutionsTotal,
			Help: "Lookup resolutions by dimension and outcome (cache_hit, found, created, failed, skipped).",
		},
		[]string{"dimension", "outcome"},
	)
	fieldWriteCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.FieldWritesTotal,
			Help: "Foreign-key field updates by dimension and status.",
		},
		[]string{"dimension", "status"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, recordCounter, resolutionCounter, fieldWriteCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:        gatewayURL,
		jobName:           jobName,
		grouping:          map[string]string{},
		reg:               reg,
		stepCounter:       stepCounter,
		stepDuration:      stepDuration,
		recordCounter:     recordCounter,
		resolutionCounter: resolutionCounter,
		fieldWriteCounter: fieldWriteCounter,
	}, nil
}

// WithGrouping adds a Pushgateway grouping label (e.g. run_id) and returns b.
func (b *Backend) WithGrouping(name, value string) *Backend {
	if name != "" && value != "" {
		b.grouping[name] = value
	}
	return b
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RecordsTotal:
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.ResolutionsTotal:
		if b.resolutionCounter == nil {
			return
		}
		b.resolutionCounter.WithLabelValues(labels["dimension"], labels["outcome"]).Add(delta)

	case metrics.FieldWritesTotal:
		if b.fieldWriteCounter == nil {
			return
		}
		b.fieldWriteCounter.WithLabelValues(labels["dimension"], labels["status"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	for k, v := range b.grouping {
		p = p.Grouping(k, v)
	}
	return p.Push()
}
