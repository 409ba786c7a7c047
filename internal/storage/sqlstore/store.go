package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carsync/internal/domain"
	"carsync/internal/lookup"
	"carsync/internal/storage"
)

// Store is a storage.Store over database/sql.
type Store struct {
	db *sql.DB
	q  Queries
}

var _ storage.Store = (*Store)(nil)

// New wraps an open database handle. The Store owns db and closes it on Close.
func New(db *sql.DB, d Dialect, vehicleTable string) (*Store, error) {
	q, err := NewQueries(d, vehicleTable)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, q: q}, nil
}

// DB exposes the underlying handle, e.g. for seeding fixtures.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) FindByName(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.q.FindByName(dim), InsertArgs(dim, name, parentID)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: find %s: %w", s.q.d.Name, dim, err)
	}
	return id, true, nil
}

func (s *Store) Insert(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, error) {
	args := InsertArgs(dim, name, parentID)

	if s.q.d.IDs == LastInsertID {
		res, err := s.db.ExecContext(ctx, s.q.Insert(dim), args...)
		if err != nil {
			return 0, fmt.Errorf("%s: insert %s: %w", s.q.d.Name, dim, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%s: insert %s: %w", s.q.d.Name, dim, lookup.ErrUnexpectedShape)
		}
		return id, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.q.Insert(dim), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: insert %s returned no id: %w", s.q.d.Name, dim, lookup.ErrUnexpectedShape)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: insert %s: %w", s.q.d.Name, dim, err)
	}
	return id, nil
}

func (s *Store) ListLookups(ctx context.Context, dim domain.Dimension) ([]domain.LookupEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q.ListLookups(dim))
	if err != nil {
		return nil, fmt.Errorf("%s: list %s: %w", s.q.d.Name, dim, err)
	}
	defer rows.Close()

	var out []domain.LookupEntry
	for rows.Next() {
		var e domain.LookupEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.ParentID); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", s.q.d.Name, dim, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, s.q.ListVehicles())
	if err != nil {
		return nil, fmt.Errorf("%s: list vehicles: %w", s.q.d.Name, err)
	}
	defer rows.Close()

	var out []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Brand, &v.Model, &v.Type, &v.Fuel); err != nil {
			return nil, fmt.Errorf("%s: scan vehicle: %w", s.q.d.Name, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateField(ctx context.Context, vehicleID int64, dim domain.Dimension, value int64) error {
	res, err := s.db.ExecContext(ctx, s.q.UpdateField(dim), value, vehicleID)
	if err != nil {
		return fmt.Errorf("%s: update %s: %w", s.q.d.Name, dim.FKColumn, err)
	}
	// The mysql backend connects with ClientFoundRows, so every driver
	// counts matched rows here.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: update %s of vehicle %d: %w", s.q.d.Name, dim.FKColumn, vehicleID, storage.ErrVehicleNotFound)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.q.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: apply DDL: %w", s.q.d.Name, err)
		}
	}
	return nil
}

func (s *Store) Coverage(ctx context.Context) (domain.Coverage, error) {
	cov := domain.Coverage{
		Missing: map[domain.Kind]int64{},
		Lookups: map[domain.Kind]int64{},
	}
	if err := s.count(ctx, s.q.CountVehicles(), &cov.Vehicles); err != nil {
		return cov, err
	}
	for _, dim := range domain.Dimensions() {
		var missing, rows int64
		if err := s.count(ctx, s.q.CountMissing(dim), &missing); err != nil {
			return cov, err
		}
		if err := s.count(ctx, s.q.CountLookups(dim), &rows); err != nil {
			return cov, err
		}
		cov.Missing[dim.Kind] = missing
		cov.Lookups[dim.Kind] = rows
	}
	return cov, nil
}

func (s *Store) count(ctx context.Context, query string, dst *int64) error {
	if err := s.db.QueryRowContext(ctx, query).Scan(dst); err != nil {
		return fmt.Errorf("%s: count: %w", s.q.d.Name, err)
	}
	return nil
}

// Close closes the underlying handle.
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}
