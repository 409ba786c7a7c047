// Package failurelog records failed resolutions and field writes to a CSV
// file so an operator can re-run or patch the affected vehicles by hand.
package failurelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Header is the first row of every failure log.
var Header = []string{"kind", "vehicle_id", "dimension", "name", "value", "error"}

const (
	KindResolve = "resolve"
	KindWrite   = "write"
)

// Log appends failure rows to a CSV stream. A nil *Log discards everything,
// so callers never need to check whether logging is enabled.
type Log struct {
	counts map[string]int
	w      *csv.Writer
}

// Open creates path (and its parent directories), writes the header and
// returns the log with a close function that flushes and closes the file.
func Open(path string) (*Log, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failurelog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failurelog: open %s: %w", path, err)
	}
	l, err := New(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return l, func() error {
		if err := l.Flush(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}, nil
}

// New writes the header to w and returns a Log over it.
func New(w io.Writer) (*Log, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("failurelog: write header: %w", err)
	}
	return &Log{counts: make(map[string]int), w: cw}, nil
}

// Resolution records a dimension that could not be resolved for a vehicle.
func (l *Log) Resolution(vehicleID int64, dimension, name string, err error) {
	l.add(KindResolve, vehicleID, dimension, name, "", err)
}

// Write records a failed foreign-key update.
func (l *Log) Write(vehicleID int64, dimension, name string, value int64, err error) {
	l.add(KindWrite, vehicleID, dimension, name, strconv.FormatInt(value, 10), err)
}

func (l *Log) add(kind string, vehicleID int64, dimension, name, value string, err error) {
	if l == nil {
		return
	}
	l.counts[kind]++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_ = l.w.Write([]string{kind, strconv.FormatInt(vehicleID, 10), dimension, name, value, msg})
}

// Counts returns the number of rows written per kind.
func (l *Log) Counts() map[string]int {
	out := map[string]int{}
	if l == nil {
		return out
	}
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Flush writes buffered rows to the underlying writer.
func (l *Log) Flush() error {
	if l == nil {
		return nil
	}
	l.w.Flush()
	return l.w.Error()
}
