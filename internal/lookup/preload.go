package lookup

import (
	"context"
	"fmt"

	"carsync/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Lister enumerates the existing rows of a lookup table.
type Lister interface {
	ListLookups(ctx context.Context, dim domain.Dimension) ([]domain.LookupEntry, error)
}

// Preload warms c with every existing row of the four lookup tables. The
// tables are read concurrently; the cache is filled only after all reads
// succeed, so on error c is left untouched. Entries must come ordered by id
// so the lowest id wins for duplicate names.
func Preload(ctx context.Context, lister Lister, c *Cache) (int, error) {
	dims := domain.Dimensions()
	results := make([][]domain.LookupEntry, len(dims))

	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range dims {
		i, dim := i, dim
		g.Go(func() error {
			rows, err := lister.ListLookups(gctx, dim)
			if err != nil {
				return fmt.Errorf("preload %s: %w", dim, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for i, dim := range dims {
		before := c.Len(dim.Kind)
		for _, e := range results[i] {
			if e.ID <= 0 || e.Name == "" {
				continue
			}
			c.Put(dim, e.Name, e.ParentID, e.ID)
		}
		n += c.Len(dim.Kind) - before
	}
	return n, nil
}
