// Package postgres registers a Postgres-backed storage.Store using pgx v5.
// Supabase databases are plain Postgres and go through this backend.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"carsync/internal/domain"
	"carsync/internal/lookup"
	"carsync/internal/storage"
	"carsync/internal/storage/sqlstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newStore is a test hook that points to NewStore by default.
// Tests may replace this variable to avoid real DB connections.
var newStore = NewStore

// Store is a storage.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	q    sqlstore.Queries
}

var _ storage.Store = (*Store)(nil)

// NewStore opens a pool for dsn and verifies connectivity.
func NewStore(ctx context.Context, dsn, vehicleTable string) (*Store, error) {
	q, err := sqlstore.NewQueries(sqlstore.Postgres, vehicleTable)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", wrapPgErr(err))
	}
	return &Store{pool: pool, q: q}, nil
}

func (s *Store) FindByName(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, s.q.FindByName(dim), sqlstore.InsertArgs(dim, name, parentID)...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: find %s: %w", dim, wrapPgErr(err))
	}
	return id, true, nil
}

func (s *Store) Insert(ctx context.Context, dim domain.Dimension, name string, parentID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, s.q.Insert(dim), sqlstore.InsertArgs(dim, name, parentID)...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("postgres: insert %s returned no id: %w", dim, lookup.ErrUnexpectedShape)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: insert %s: %w", dim, wrapPgErr(err))
	}
	return id, nil
}

func (s *Store) ListLookups(ctx context.Context, dim domain.Dimension) ([]domain.LookupEntry, error) {
	rows, err := s.pool.Query(ctx, s.q.ListLookups(dim))
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", dim, wrapPgErr(err))
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LookupEntry, error) {
		var e domain.LookupEntry
		err := row.Scan(&e.ID, &e.Name, &e.ParentID)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan %s: %w", dim, err)
	}
	return out, nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := s.pool.Query(ctx, s.q.ListVehicles())
	if err != nil {
		return nil, fmt.Errorf("postgres: list vehicles: %w", wrapPgErr(err))
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Vehicle, error) {
		var v domain.Vehicle
		err := row.Scan(&v.ID, &v.Brand, &v.Model, &v.Type, &v.Fuel)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan vehicle: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateField(ctx context.Context, vehicleID int64, dim domain.Dimension, value int64) error {
	tag, err := s.pool.Exec(ctx, s.q.UpdateField(dim), value, vehicleID)
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", dim.FKColumn, wrapPgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update %s of vehicle %d: %w", dim.FKColumn, vehicleID, storage.ErrVehicleNotFound)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.q.Schema() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: apply DDL: %w", wrapPgErr(err))
		}
	}
	return nil
}

func (s *Store) Coverage(ctx context.Context) (domain.Coverage, error) {
	cov := domain.Coverage{
		Missing: map[domain.Kind]int64{},
		Lookups: map[domain.Kind]int64{},
	}
	if err := s.pool.QueryRow(ctx, s.q.CountVehicles()).Scan(&cov.Vehicles); err != nil {
		return cov, fmt.Errorf("postgres: count vehicles: %w", wrapPgErr(err))
	}
	for _, dim := range domain.Dimensions() {
		var missing, rows int64
		if err := s.pool.QueryRow(ctx, s.q.CountMissing(dim)).Scan(&missing); err != nil {
			return cov, fmt.Errorf("postgres: count missing %s: %w", dim, wrapPgErr(err))
		}
		if err := s.pool.QueryRow(ctx, s.q.CountLookups(dim)).Scan(&rows); err != nil {
			return cov, fmt.Errorf("postgres: count %s: %w", dim, wrapPgErr(err))
		}
		cov.Missing[dim.Kind] = missing
		cov.Lookups[dim.Kind] = rows
	}
	return cov, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// wrapPgErr adds the server's detail and SQLSTATE when err is a *pgconn.PgError.
func wrapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s, %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		s, err := newStore(ctx, cfg.DSN, cfg.VehicleTable)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
