// Package sqlite registers a SQLite-backed storage.Store (modernc.org/sqlite,
// pure Go). It is handy for local runs and is what the SQL tests run against.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"carsync/internal/storage"
	"carsync/internal/storage/sqlstore"

	_ "modernc.org/sqlite"
)

// newStore is a test hook that points to NewStore by default.
var newStore = NewStore

// NewStore opens the database at dsn, e.g. "carsync.db" or
// "file:carsync.db?cache=shared", and enables foreign keys.
func NewStore(ctx context.Context, dsn, vehicleTable string) (*sqlstore.Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	s, err := sqlstore.New(db, sqlstore.SQLite, vehicleTable)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		s, err := newStore(ctx, cfg.DSN, cfg.VehicleTable)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
