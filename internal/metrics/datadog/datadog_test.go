package datadog

import (
	"testing"

	"carsync/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{})
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		labels metrics.Labels
		want   []string
	}{
		{name: "nil", labels: nil, want: nil},
		{
			name:   "sorted",
			labels: metrics.Labels{"status": "success", "dimension": "brand", "job": "carsync"},
			want:   []string{"dimension:brand", "job:carsync", "status:success"},
		},
		{
			name:   "empty values dropped",
			labels: metrics.Labels{"kind": "updated", "job": ""},
			want:   []string{"kind:updated"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, labelsToTags(tt.labels))
		})
	}
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "updated"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.5, nil)
	assert.NoError(t, b.Flush())
	assert.NoError(t, b.Close())
}
