package batch

import (
	"encoding/binary"
	"fmt"
	"time"

	"carsync/internal/domain"
	"carsync/internal/lookup"
	"carsync/internal/reconcile"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// Report summarizes one pass over the vehicle table.
type Report struct {
	RunID     string
	Total     int // vehicles fetched
	Processed int // vehicles reconciled; below Total only when cancelled
	Updated   int // at least one foreign key written
	Errored   int // nothing written
	Preloaded int // cache entries loaded before the scan

	CacheSizes         map[domain.Kind]int
	Resolutions        map[domain.Kind]lookup.Counts
	FieldWrites        map[domain.Kind]int
	FieldWriteFailures map[domain.Kind]int

	// Digest fingerprints the ids assigned to every processed vehicle, in
	// scan order. Re-running against an unchanged store reproduces it.
	Digest   uint64
	Duration time.Duration
}

func newReport(runID string) Report {
	return Report{
		RunID:              runID,
		CacheSizes:         map[domain.Kind]int{},
		Resolutions:        map[domain.Kind]lookup.Counts{},
		FieldWrites:        map[domain.Kind]int{},
		FieldWriteFailures: map[domain.Kind]int{},
	}
}

func (r *Report) add(res reconcile.Result) {
	r.Processed++
	if res.Updated() {
		r.Updated++
	} else {
		r.Errored++
	}
	for _, f := range res.Fields {
		switch f.Status {
		case reconcile.StatusWritten:
			r.FieldWrites[f.Dimension.Kind]++
		case reconcile.StatusWriteFail:
			r.FieldWriteFailures[f.Dimension.Kind]++
		}
	}
}

// Fields renders the report as structured log fields.
func (r Report) Fields() []zap.Field {
	fs := []zap.Field{
		zap.Int("total", r.Total),
		zap.Int("processed", r.Processed),
		zap.Int("updated", r.Updated),
		zap.Int("errored", r.Errored),
	}
	for _, dim := range domain.Dimensions() {
		fs = append(fs, zap.Int("cache_"+dim.String(), r.CacheSizes[dim.Kind]))
	}
	return append(fs,
		zap.String("digest", FormatDigest(r.Digest)),
		zap.Duration("duration", r.Duration),
	)
}

// FormatDigest renders a digest as 16 hex digits.
func FormatDigest(d uint64) string { return fmt.Sprintf("%016x", d) }

// digester accumulates (vehicle id, brand, model, type, fuel ids) tuples.
type digester struct {
	h   *xxh3.Hasher
	buf []byte
}

func newDigester() *digester {
	return &digester{h: xxh3.New(), buf: make([]byte, 0, 40)}
}

func (d *digester) add(res reconcile.Result) {
	b := binary.LittleEndian.AppendUint64(d.buf[:0], uint64(res.VehicleID))
	for _, dim := range domain.Dimensions() {
		b = binary.LittleEndian.AppendUint64(b, uint64(res.ID(dim.Kind)))
	}
	_, _ = d.h.Write(b)
}

func (d *digester) sum() uint64 { return d.h.Sum64() }
