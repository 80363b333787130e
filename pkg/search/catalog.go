package search

import (
	"fmt"
	"math"
	"slices"

	"github.com/tidwall/btree"
)

// Catalog maps genome tag names to vector component indices.
// Tag ids are 1-based; the component of tag id n is n-1.
// Iteration is ordered by tag name.
type Catalog struct {
	tags *btree.Map[string, int]
	min  int
	max  int
}

// NewCatalog builds a catalog from tag ids and names. When two ids share a
// name, the higher id wins.
func NewCatalog(tags map[int]string) *Catalog {
	c := &Catalog{tags: btree.NewMap[string, int](0), max: -1}
	if len(tags) > 0 {
		c.min = math.MaxInt
	}

	ids := make([]int, 0, len(tags))
	for id := range tags {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		component := id - 1
		c.tags.Set(tags[id], component)
		c.min = min(c.min, component)
		c.max = max(c.max, component)
	}
	return c
}

// Lookup returns the vector component of a tag name.
func (c *Catalog) Lookup(name string) (int, bool) {
	return c.tags.Get(name)
}

// Len returns the number of distinct tag names.
func (c *Catalog) Len() int {
	return c.tags.Len()
}

// MaxComponent returns the largest component index, or -1 for an empty catalog.
func (c *Catalog) MaxComponent() int {
	return c.max
}

// Validate checks that every component addresses a node vector of outputSize components.
func (c *Catalog) Validate(outputSize int) error {
	if c.Len() == 0 {
		return nil
	}
	if c.min < 0 || c.max >= outputSize {
		return fmt.Errorf("%w: components span [%d, %d], map nodes have %d components", ErrTagOutOfRange, c.min, c.max, outputSize)
	}
	return nil
}

// Scan calls fn for every tag in name order until fn returns false.
func (c *Catalog) Scan(fn func(name string, component int) bool) {
	c.tags.Scan(fn)
}

// Names returns all tag names in order.
func (c *Catalog) Names() []string {
	return c.tags.Keys()
}
