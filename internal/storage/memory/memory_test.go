package memory

import (
	"context"
	"errors"
	"testing"

	"carsync/internal/domain"
	"carsync/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAssignsSequentialIDsPerTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	brand := domain.ByKind(domain.Brand)
	fuel := domain.ByKind(domain.FuelType)

	a, err := s.Insert(ctx, brand, "Audi", 0)
	require.NoError(t, err)
	b, err := s.Insert(ctx, brand, "Bmw", 0)
	require.NoError(t, err)
	f, err := s.Insert(ctx, fuel, "Diesel", 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 1}, []int64{a, b, f})
	assert.Equal(t, 2, s.Calls().Insert[domain.Brand])
	assert.Equal(t, 3, s.Calls().InsertTotal())
}

func TestFindByNameScopesModels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	model := domain.ByKind(domain.Model)
	x5a := s.Seed(domain.Model, "X5", 1)
	x5b := s.Seed(domain.Model, "X5", 2)

	id, ok, err := s.FindByName(ctx, model, "X5", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, x5b, id)
	assert.NotEqual(t, x5a, x5b)

	_, ok, err = s.FindByName(ctx, model, "X5", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, s.Calls().Find[domain.Model])
}

func TestFindByNameLowestIDWins(t *testing.T) {
	t.Parallel()

	s := New()
	first := s.Seed(domain.VehicleType, "Suv", 0)
	s.Seed(domain.VehicleType, "Suv", 0)

	id, ok, err := s.FindByName(context.Background(), domain.ByKind(domain.VehicleType), "Suv", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, id)
}

func TestFailureHooks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")
	s := New(domain.Vehicle{ID: 1})
	brand := domain.ByKind(domain.Brand)

	s.FailFind = func(dim domain.Dimension, name string, parentID int64) error { return boom }
	s.FailInsert = func(dim domain.Dimension, name string, parentID int64) error { return boom }
	s.FailUpdate = func(vehicleID int64, dim domain.Dimension, value int64) error { return boom }

	_, _, err := s.FindByName(ctx, brand, "Bmw", 0)
	assert.ErrorIs(t, err, boom)
	_, err = s.Insert(ctx, brand, "Bmw", 0)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.UpdateField(ctx, 1, brand, 1), boom)
	assert.Empty(t, s.Lookups(domain.Brand))

	s.FailList = boom
	_, err = s.ListVehicles(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestVehiclesUpdateAndCoverage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(domain.Vehicle{ID: 9, Brand: "audi"}, domain.Vehicle{ID: 7, Brand: "bmw"})
	brand := domain.ByKind(domain.Brand)

	vs, err := s.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, int64(7), vs[0].ID)

	id := s.Seed(domain.Brand, "Bmw", 0)
	require.NoError(t, s.UpdateField(ctx, 7, brand, id))
	got, ok := s.FK(7, domain.Brand)
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = s.FK(9, domain.Brand)
	assert.False(t, ok)

	err = s.UpdateField(ctx, 404, brand, id)
	assert.ErrorIs(t, err, storage.ErrVehicleNotFound)

	cov, err := s.Coverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cov.Vehicles)
	assert.Equal(t, int64(1), cov.Missing[domain.Brand])
	assert.Equal(t, int64(2), cov.Missing[domain.Model])
	assert.Equal(t, int64(1), cov.Lookups[domain.Brand])
}

func TestSeedDropsParentForUnscopedKinds(t *testing.T) {
	t.Parallel()

	s := New()
	s.Seed(domain.FuelType, "Diesel", 42)
	assert.Equal(t, []domain.LookupEntry{{ID: 1, Name: "Diesel"}}, s.Lookups(domain.FuelType))
}

func TestRegisteredKindOpensEmptyStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := storage.New(ctx, storage.Config{Kind: "memory", DSN: "ignored", VehicleTable: "cars_v2"})
	require.NoError(t, err)
	defer s.Close()

	vehicles, err := s.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)

	cov, err := s.Coverage(ctx)
	require.NoError(t, err)
	assert.Zero(t, cov.Vehicles)
}
