// Package memory provides an in-process storage.Store. Ids are assigned
// deterministically from 1 per table. Failure hooks and call counters make it
// the fake of choice for resolver, reconciler and batch tests. It is also
// registered as kind "memory", which opens an empty store: handy for checking
// configuration and wiring, but a pass over it processes no vehicles.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"carsync/internal/domain"
	"carsync/internal/storage"
)

// Calls counts store operations per dimension.
type Calls struct {
	Find   [4]int
	Insert [4]int
	Update [4]int
	List   int // ListVehicles
}

// FindTotal sums Find across dimensions.
func (c Calls) FindTotal() int { return c.Find[0] + c.Find[1] + c.Find[2] + c.Find[3] }

// InsertTotal sums Insert across dimensions.
func (c Calls) InsertTotal() int { return c.Insert[0] + c.Insert[1] + c.Insert[2] + c.Insert[3] }

// Store is a goroutine-safe in-memory storage.Store.
type Store struct {
	mu       sync.Mutex
	lookups  [4][]domain.LookupEntry
	nextID   [4]int64
	vehicles map[int64]*row
	calls    Calls

	// Hooks return a non-nil error to make the matching call fail. They run
	// with the store locked and must not call back into it.
	FailFind    func(dim domain.Dimension, name string, parentID int64) error
	FailInsert  func(dim domain.Dimension, name string, parentID int64) error
	FailUpdate  func(vehicleID int64, dim domain.Dimension, value int64) error
	FailList    error // ListVehicles
	FailLookups error // ListLookups
}

type row struct {
	v   domain.Vehicle
	fks [4]int64 // 0 is NULL
}

var _ storage.Store = (*Store)(nil)

// New returns a store holding vehicles.
func New(vehicles ...domain.Vehicle) *Store {
	s := &Store{vehicles: map[int64]*row{}}
	for _, v := range vehicles {
		s.AddVehicle(v)
	}
	return s
}

// AddVehicle inserts or replaces a vehicle row with NULL foreign keys.
func (s *Store) AddVehicle(v domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = &row{v: v}
}

// Seed inserts a lookup row directly, bypassing hooks and counters.
// Duplicate names are allowed, to mimic legacy data.
func (s *Store) Seed(k domain.Kind, name string, parentID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(k, name, parentID)
}

func (s *Store) insertLocked(k domain.Kind, name string, parentID int64) int64 {
	s.nextID[k]++
	id := s.nextID[k]
	if !domain.ByKind(k).HasParent() {
		parentID = 0
	}
	s.lookups[k] = append(s.lookups[k], domain.LookupEntry{ID: id, Name: name, ParentID: parentID})
	return id
}

// Lookups returns a copy of one lookup table, ordered by id.
func (s *Store) Lookups(k domain.Kind) []domain.LookupEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LookupEntry(nil), s.lookups[k]...)
}

// FK returns the foreign key stored on a vehicle; ok is false when NULL or
// the vehicle does not exist.
func (s *Store) FK(vehicleID int64, k domain.Kind) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.vehicles[vehicleID]
	if !ok || r.fks[k] == 0 {
		return 0, false
	}
	return r.fks[k], true
}

// Calls returns a snapshot of the call counters.
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ResetCalls zeroes the call counters.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = Calls{}
}

func (s *Store) FindByName(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Find[dim.Kind]++
	if s.FailFind != nil {
		if err := s.FailFind(dim, name, parentID); err != nil {
			return 0, false, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	for _, e := range s.lookups[dim.Kind] {
		if e.Name != name {
			continue
		}
		if dim.HasParent() && e.ParentID != parentID {
			continue
		}
		return e.ID, true, nil
	}
	return 0, false, nil
}

func (s *Store) Insert(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Insert[dim.Kind]++
	if s.FailInsert != nil {
		if err := s.FailInsert(dim, name, parentID); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.insertLocked(dim.Kind, name, parentID), nil
}

func (s *Store) ListLookups(ctx context.Context, dim domain.Dimension) ([]domain.LookupEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLookups != nil {
		return nil, s.FailLookups
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]domain.LookupEntry(nil), s.lookups[dim.Kind]...), nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.List++
	if s.FailList != nil {
		return nil, s.FailList
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Vehicle, 0, len(s.vehicles))
	for _, r := range s.vehicles {
		out = append(out, r.v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateField(ctx context.Context, vehicleID int64, dim domain.Dimension, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Update[dim.Kind]++
	if s.FailUpdate != nil {
		if err := s.FailUpdate(vehicleID, dim, value); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := s.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("memory: update %s of vehicle %d: %w", dim.FKColumn, vehicleID, storage.ErrVehicleNotFound)
	}
	r.fks[dim.Kind] = value
	return nil
}

func (s *Store) EnsureSchema(context.Context) error { return nil }

func (s *Store) Coverage(ctx context.Context) (domain.Coverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cov := domain.Coverage{
		Vehicles: int64(len(s.vehicles)),
		Missing:  map[domain.Kind]int64{},
		Lookups:  map[domain.Kind]int64{},
	}
	for _, dim := range domain.Dimensions() {
		var missing int64
		for _, r := range s.vehicles {
			if r.fks[dim.Kind] == 0 {
				missing++
			}
		}
		cov.Missing[dim.Kind] = missing
		cov.Lookups[dim.Kind] = int64(len(s.lookups[dim.Kind]))
	}
	return cov, nil
}

func (s *Store) Close() {}

func init() {
	// Each open starts empty; the DSN is ignored.
	storage.Register("memory", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return New(), nil
	})
}
