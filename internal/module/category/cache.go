package category

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/simp-lee/saleads/internal/domain"
)

// Cache is an immutable snapshot of the whole category tree. It is built per
// request and never shared.
type Cache struct {
	byID     map[uint]*Node
	ordered  []*Node
	children map[uint][]*Node
}

// Build links records into a Cache. Every record is copied, so later changes
// to the records do not reach the cache. Build fails on duplicate ids,
// parents missing from records, and cycles.
func Build(records []domain.Category) (*Cache, error) {
	c := &Cache{
		byID:    make(map[uint]*Node, len(records)),
		ordered: make([]*Node, 0, len(records)),
	}
	for _, rec := range records {
		if _, dup := c.byID[rec.ID]; dup {
			return nil, fmt.Errorf("build category cache: duplicate category %d", rec.ID)
		}
		if rec.ParentID != nil {
			pid := *rec.ParentID
			rec.ParentID = &pid
		}
		n := &Node{Category: rec, cache: c}
		c.byID[rec.ID] = n
		c.ordered = append(c.ordered, n)
	}
	slices.SortFunc(c.ordered, func(a, b *Node) int { return cmp.Compare(a.ID, b.ID) })

	for _, n := range c.ordered {
		if n.ParentID == nil {
			continue
		}
		parent, ok := c.byID[*n.ParentID]
		if !ok {
			return nil, fmt.Errorf("build category cache: category %d has unknown parent %d", n.ID, *n.ParentID)
		}
		n.Parent = parent
	}

	for _, n := range c.ordered {
		depth := 0
		for p := n.Parent; p != nil; p = p.Parent {
			depth++
			if depth > len(c.ordered) {
				return nil, fmt.Errorf("build category cache: category %d is part of a cycle", n.ID)
			}
		}
	}
	return c, nil
}

// Get returns the cached node with the given id.
func (c *Cache) Get(id uint) (*Node, bool) {
	n, ok := c.byID[id]
	return n, ok
}

// Len returns the number of cached categories.
func (c *Cache) Len() int {
	return len(c.ordered)
}

// Nodes returns every cached node ordered by id.
func (c *Cache) Nodes() []*Node {
	return slices.Clone(c.ordered)
}

// Roots returns the categories without a parent sorted by name, ignoring case.
func (c *Cache) Roots() []*Node {
	var roots []*Node
	for _, n := range c.ordered {
		if n.Parent == nil {
			roots = append(roots, n)
		}
	}
	sortByLowercasedName(roots)
	return roots
}

// childrenOf indexes the tree on first use.
func (c *Cache) childrenOf(id uint) []*Node {
	if c.children == nil {
		c.children = make(map[uint][]*Node, len(c.ordered))
		for _, n := range c.ordered {
			if n.Parent != nil {
				c.children[n.Parent.ID] = append(c.children[n.Parent.ID], n)
			}
		}
	}
	return c.children[id]
}
