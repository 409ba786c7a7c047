package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"carsync/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
)

// TestRegisteredFactoryUsesHook verifies that storage.New("postgres") goes
// through newStore with the DSN and vehicle table from storage.Config.
// Not parallel: it swaps a package-level hook.
func TestRegisteredFactoryUsesHook(t *testing.T) {
	orig := newStore
	t.Cleanup(func() { newStore = orig })

	var gotDSN, gotTable string
	newStore = func(ctx context.Context, dsn, vehicleTable string) (*Store, error) {
		gotDSN, gotTable = dsn, vehicleTable
		return &Store{}, nil
	}

	s, err := storage.New(context.Background(), storage.Config{
		Kind:         "postgres",
		DSN:          "postgres://u:p@db:5432/cars",
		VehicleTable: "public.cars_v2",
	})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	defer s.Close()

	if gotDSN != "postgres://u:p@db:5432/cars" || gotTable != "public.cars_v2" {
		t.Fatalf("hook got (%q, %q)", gotDSN, gotTable)
	}
}

func TestRegisteredFactoryPropagatesError(t *testing.T) {
	orig := newStore
	t.Cleanup(func() { newStore = orig })

	want := errors.New("dial failed")
	newStore = func(ctx context.Context, dsn, vehicleTable string) (*Store, error) {
		return nil, want
	}

	s, err := storage.New(context.Background(), storage.Config{Kind: "postgres"})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if s != nil {
		t.Fatalf("store = %v, want nil interface", s)
	}
}

func TestNewStoreRejectsBadInputWithoutConnecting(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(context.Background(), "postgres://localhost/db", "cars;drop"); err == nil {
		t.Fatalf("expected error for invalid vehicle table")
	}
	if _, err := NewStore(context.Background(), "postgres://%zz", "cars_v2"); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}

func TestWrapPgErr(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain")
	if got := wrapPgErr(plain); got != plain {
		t.Fatalf("wrapPgErr(plain) = %v, want unchanged", got)
	}

	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key", Detail: "Key (name)=(Bmw) already exists."}
	got := wrapPgErr(pgErr)
	if !errors.Is(got, pgErr) {
		t.Fatalf("wrapped error lost the original")
	}
	if want := "Key (name)=(Bmw) already exists."; !strings.Contains(got.Error(), want) || !strings.Contains(got.Error(), "23505") {
		t.Fatalf("wrapPgErr = %q, want detail and SQLSTATE", got.Error())
	}
}
