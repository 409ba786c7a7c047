package mysql

import (
	"context"
	"testing"

	"carsync/internal/storage"
	"carsync/internal/storage/sqlstore"
)

// Not parallel: swaps a package-level hook.
func TestRegisteredFactoryUsesHook(t *testing.T) {
	orig := newStore
	t.Cleanup(func() { newStore = orig })

	called := false
	newStore = func(ctx context.Context, dsn, vehicleTable string) (*sqlstore.Store, error) {
		called = true
		if dsn != "u:p@tcp(db:3306)/cars" || vehicleTable != "cars_v2" {
			t.Fatalf("hook got (%q, %q)", dsn, vehicleTable)
		}
		return sqlstore.New(nil, sqlstore.MySQL, vehicleTable)
	}

	s, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(db:3306)/cars", VehicleTable: "cars_v2"})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	s.Close()
	if !called {
		t.Fatalf("newStore hook not called")
	}
}

func TestNewStoreRejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(context.Background(), "no slash here", "cars_v2"); err == nil {
		t.Fatalf("expected DSN parse error")
	}
}

func TestParseDSNCountsMatchedRows(t *testing.T) {
	t.Parallel()

	cfg, err := parseDSN("u:p@tcp(db:3306)/cars")
	if err != nil {
		t.Fatalf("parseDSN: %v", err)
	}
	if !cfg.ClientFoundRows {
		t.Fatalf("ClientFoundRows must be on so UpdateField can detect missing vehicles")
	}
	if cfg.DBName != "cars" || cfg.Addr != "db:3306" {
		t.Fatalf("unexpected config: db=%q addr=%q", cfg.DBName, cfg.Addr)
	}
}
