package lookup

import (
	"context"
	"errors"
	"testing"

	"carsync/internal/domain"
	"carsync/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadWarmsCache(t *testing.T) {
	t.Parallel()

	store := memory.New()
	bmw := store.Seed(domain.Brand, "Bmw", 0)
	store.Seed(domain.Brand, "Bmw", 0) // legacy duplicate, higher id
	x5 := store.Seed(domain.Model, "X5", bmw)
	store.Seed(domain.FuelType, "Diesel", 0)

	c := NewCache()
	n, err := Preload(context.Background(), store, c)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	id, ok := c.Get(domain.ByKind(domain.Brand), "Bmw", 0)
	assert.True(t, ok)
	assert.Equal(t, bmw, id)
	id, ok = c.Get(domain.ByKind(domain.Model), "X5", bmw)
	assert.True(t, ok)
	assert.Equal(t, x5, id)

	// A resolver over the warmed cache never touches the store.
	r := NewResolver(store, c)
	_, ok = r.Resolve(context.Background(), domain.ByKind(domain.FuelType), "Diesel", 0)
	assert.True(t, ok)
	assert.Zero(t, store.Calls().FindTotal())
}

type failingLister struct{ fail domain.Kind }

func (f failingLister) ListLookups(_ context.Context, dim domain.Dimension) ([]domain.LookupEntry, error) {
	if dim.Kind == f.fail {
		return nil, errors.New("permission denied")
	}
	return []domain.LookupEntry{{ID: 1, Name: "Anything"}}, nil
}

func TestPreloadErrorLeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	c := NewCache()
	_, err := Preload(context.Background(), failingLister{fail: domain.FuelType}, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuel_type")
	for _, n := range c.Sizes() {
		assert.Zero(t, n)
	}
}
