package lookup

import "carsync/internal/domain"

type cacheKey struct {
	kind   domain.Kind
	parent int64
	name   string
}

// Cache memoizes resolved identifiers for one batch run. Keys are
// (dimension, name), with the parent brand id folded in for models so the
// same model name under two brands never collides.
//
// A Cache is not safe for concurrent use; the batch runs single-threaded.
type Cache struct {
	entries map[cacheKey]int64
	sizes   [4]int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]int64)}
}

func keyFor(dim domain.Dimension, name string, parentID int64) cacheKey {
	if !dim.HasParent() {
		parentID = 0
	}
	return cacheKey{kind: dim.Kind, parent: parentID, name: name}
}

// Get returns the cached id for name (and parentID for models).
func (c *Cache) Get(dim domain.Dimension, name string, parentID int64) (int64, bool) {
	id, ok := c.entries[keyFor(dim, name, parentID)]
	return id, ok
}

// Put records id unless the key is already present; the first id wins.
func (c *Cache) Put(dim domain.Dimension, name string, parentID int64, id int64) {
	k := keyFor(dim, name, parentID)
	if _, ok := c.entries[k]; ok {
		return
	}
	c.entries[k] = id
	c.sizes[dim.Kind]++
}

// Len returns the number of entries cached for kind k.
func (c *Cache) Len(k domain.Kind) int { return c.sizes[k] }

// Sizes returns the population per kind.
func (c *Cache) Sizes() map[domain.Kind]int {
	out := make(map[domain.Kind]int, len(c.sizes))
	for _, d := range domain.Dimensions() {
		out[d.Kind] = c.sizes[d.Kind]
	}
	return out
}
