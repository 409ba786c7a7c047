// Package storage defines the backend-agnostic data store used by the
// reconciliation pass and a small registry of backend constructors.
//
// Concrete backends (postgres, sqlite, mysql, mssql, memory) register a
// Factory for their kind from an init function; callers obtain a Store via
// New without importing the backend directly. Import storage/all to enable
// every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"carsync/internal/domain"
)

// ErrUnsupportedKind is returned by New when no factory is registered for
// the requested kind.
var ErrUnsupportedKind = errors.New("unsupported storage.kind")

// ErrVehicleNotFound is returned by UpdateField when no vehicle row matched.
var ErrVehicleNotFound = errors.New("storage: vehicle not found")

// Store is everything the pass needs from the data store: the four lookup
// tables, the vehicle table, and a few maintenance queries.
type Store interface {
	// FindByName returns the lowest id whose name equals name, scoped to
	// parentID for dimensions with a parent.
	FindByName(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, bool, error)
	// Insert creates a lookup row and returns the id the store assigned.
	Insert(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, error)
	// ListLookups returns every row of dim's table ordered by id.
	ListLookups(ctx context.Context, dim domain.Dimension) ([]domain.LookupEntry, error)
	// ListVehicles returns every vehicle ordered by id.
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
	// UpdateField sets dim's foreign-key column on one vehicle.
	UpdateField(ctx context.Context, vehicleID int64, dim domain.Dimension, value int64) error
	// EnsureSchema creates the lookup tables and the vehicle table when missing.
	EnsureSchema(ctx context.Context) error
	// Coverage reports lookup sizes and vehicles still missing each key.
	Coverage(ctx context.Context) (domain.Coverage, error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind         string // registered backend kind, e.g. "postgres"
	DSN          string // driver-specific connection string
	VehicleTable string // optionally schema-qualified, e.g. "public.cars_v2"
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Store using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w=%s", ErrUnsupportedKind, cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Registered reports whether a factory exists for kind.
func Registered(kind string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[kind]
	return ok
}
