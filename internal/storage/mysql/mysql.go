// Package mysql registers a MySQL-backed storage.Store using
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"carsync/internal/storage"
	"carsync/internal/storage/sqlstore"

	"github.com/go-sql-driver/mysql"
)

// newStore is a test hook that points to NewStore by default.
var newStore = NewStore

// NewStore opens a pool for dsn ("user:pass@tcp(host:3306)/db").
func NewStore(ctx context.Context, dsn, vehicleTable string) (*sqlstore.Store, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}

	s, err := sqlstore.New(db, sqlstore.MySQL, vehicleTable)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// parseDSN parses dsn and turns on ClientFoundRows, so an UPDATE reports the
// rows it matched rather than the rows it changed. Without it, rewriting a key
// with its current value is indistinguishable from a missing vehicle.
func parseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg, nil
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		s, err := newStore(ctx, cfg.DSN, cfg.VehicleTable)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
