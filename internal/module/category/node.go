// Package category implements the ad category tree: a per-request snapshot
// cache of the hierarchy, subtree ad counting, and the category endpoints.
package category

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/simp-lee/saleads/internal/domain"
)

// FullNameSeparator joins ancestor names in full names.
const FullNameSeparator = "\u00a0/ "

// ErrNotAncestor is returned when a relative name is requested against a
// category that is not an ancestor.
var ErrNotAncestor = errors.New("category is not an ancestor")

// Source answers live child queries for nodes that are not backed by a Cache.
type Source interface {
	Children(ctx context.Context, parentID uint) ([]domain.Category, error)
}

// Node is a category linked into a tree.
//
// A node built by Build belongs to a Cache: its parent is another node of the
// same cache and its derived attributes are computed once and then frozen.
// A node built by Detach has no cache: every derived attribute is recomputed
// on each call, and children are read live from its Source.
//
// Nodes are not safe for concurrent use.
type Node struct {
	domain.Category
	Parent *Node

	cache *Cache
	src   Source
	memo  struct {
		children      memo[[]*Node]
		descendants   memo[Set]
		sorted        memo[[]*Node]
		fullName      memo[string]
		lowerName     memo[string]
		lowerFullName memo[string]
	}
}

// Detach wraps a stored record as an unmanaged node. parent may be nil for a
// root, and src may be nil when children are never requested.
func Detach(rec domain.Category, parent *Node, src Source) *Node {
	return &Node{Category: rec, Parent: parent, src: src}
}

// Cached reports whether n belongs to a Cache.
func (n *Node) Cached() bool {
	return n.cache != nil
}

type memo[T any] struct {
	val T
	ok  bool
}

// computed returns an attribute of n. On a cached node the value is computed
// once and stored in slot; on any other node it is recomputed on every call.
// share, when set, turns the stored value into the one handed to a caller, so
// callers cannot change what later callers see.
func computed[T any](n *Node, slot *memo[T], compute func(*Node) (T, error), share func(T) T) (T, error) {
	if n.cache == nil {
		return compute(n)
	}
	if !slot.ok {
		v, err := compute(n)
		if err != nil {
			var zero T
			return zero, err
		}
		slot.val, slot.ok = v, true
	}
	if share != nil {
		return share(slot.val), nil
	}
	return slot.val, nil
}

// AllChildren returns the direct children of n ordered by id. The slice is
// the caller's to modify.
func (n *Node) AllChildren(ctx context.Context) ([]*Node, error) {
	return computed(n, &n.memo.children, func(n *Node) ([]*Node, error) {
		return n.loadChildren(ctx)
	}, slices.Clone[[]*Node])
}

func (n *Node) loadChildren(ctx context.Context) ([]*Node, error) {
	if n.cache != nil {
		return n.cache.childrenOf(n.ID), nil
	}
	if n.src == nil {
		return nil, fmt.Errorf("category %d: no source for children", n.ID)
	}
	recs, err := n.src.Children(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	children := make([]*Node, 0, len(recs))
	for _, rec := range recs {
		children = append(children, Detach(rec, n, n.src))
	}
	slices.SortFunc(children, func(a, b *Node) int { return cmp.Compare(a.ID, b.ID) })
	return children, nil
}

// Descendants returns every category below n.
func (n *Node) Descendants(ctx context.Context) (Set, error) {
	return computed(n, &n.memo.descendants, func(n *Node) (Set, error) {
		return n.collectDescendants(ctx)
	}, Set.freeze)
}

func (n *Node) collectDescendants(ctx context.Context) (Set, error) {
	children, err := n.AllChildren(ctx)
	if err != nil {
		return Set{}, err
	}
	out := NewSet()
	for _, child := range children {
		out.Add(child)
		sub, err := child.Descendants(ctx)
		if err != nil {
			return Set{}, err
		}
		for _, d := range sub.Nodes() {
			out.Add(d)
		}
	}
	return out, nil
}

// SortedChildren returns the direct children of n sorted by name, ignoring
// case. Names equal up to case keep their id order.
func (n *Node) SortedChildren(ctx context.Context) ([]*Node, error) {
	return computed(n, &n.memo.sorted, func(n *Node) ([]*Node, error) {
		children, err := n.AllChildren(ctx)
		if err != nil {
			return nil, err
		}
		sortByLowercasedName(children)
		return children, nil
	}, slices.Clone[[]*Node])
}

// FullName returns the names from the root down to n.
func (n *Node) FullName() string {
	name, _ := computed(n, &n.memo.fullName, func(n *Node) (string, error) {
		return n.NameRelativeTo(nil)
	}, nil)
	return name
}

// LowercasedName returns the lowercased name of n.
func (n *Node) LowercasedName() string {
	name, _ := computed(n, &n.memo.lowerName, func(n *Node) (string, error) {
		return strings.ToLower(n.Name), nil
	}, nil)
	return name
}

// LowercasedFullName returns the lowercased full name of n.
func (n *Node) LowercasedFullName() string {
	name, _ := computed(n, &n.memo.lowerFullName, func(n *Node) (string, error) {
		return strings.ToLower(n.FullName()), nil
	}, nil)
	return name
}

// NameRelativeTo returns the names from just below ancestor down to n.
// A nil ancestor means the root, which makes the result the full name.
func (n *Node) NameRelativeTo(ancestor *Node) (string, error) {
	if ancestor == nil {
		return n.nameBelow(func(p *Node) bool { return p == nil }, nil)
	}
	return n.nameBelow(func(p *Node) bool { return p != nil && p.ID == ancestor.ID }, func() error {
		return fmt.Errorf("%w: can't get the name of the \"%s\" category relative to the \"%s\" category",
			ErrNotAncestor, n.FullName(), ancestor.FullName())
	})
}

// NameRelativeToID is NameRelativeTo for an ancestor given by id.
func (n *Node) NameRelativeToID(id uint) (string, error) {
	return n.nameBelow(func(p *Node) bool { return p != nil && p.ID == id }, func() error {
		return fmt.Errorf("%w: can't get the name of the \"%s\" category relative to the category with the primary key %d",
			ErrNotAncestor, n.FullName(), id)
	})
}

func (n *Node) nameBelow(isAncestor func(*Node) bool, notFound func() error) (string, error) {
	names := []string{n.Name}
	for cur := n; !isAncestor(cur.Parent); cur = cur.Parent {
		if cur.Parent == nil {
			return "", notFound()
		}
		names = append(names, cur.Parent.Name)
	}
	slices.Reverse(names)
	return strings.Join(names, FullNameSeparator), nil
}

func sortByLowercasedName(nodes []*Node) {
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return strings.Compare(a.LowercasedName(), b.LowercasedName())
	})
}

// Set is a set of nodes keyed by id. The sets returned by cached nodes are
// frozen and panic on Add.
type Set struct {
	m      map[uint]*Node
	frozen bool
}

// NewSet returns an empty mutable set.
func NewSet() Set {
	return Set{m: make(map[uint]*Node)}
}

// Add inserts n into the set.
func (s Set) Add(n *Node) {
	if s.frozen {
		panic("category: add to frozen set")
	}
	s.m[n.ID] = n
}

// Has reports whether a category with the given id is in the set.
func (s Set) Has(id uint) bool {
	_, ok := s.m[id]
	return ok
}

// Len returns the number of categories in the set.
func (s Set) Len() int {
	return len(s.m)
}

// IDs returns the ids in ascending order.
func (s Set) IDs() []uint {
	return slices.Sorted(maps.Keys(s.m))
}

// Nodes returns the members ordered by id.
func (s Set) Nodes() []*Node {
	out := make([]*Node, 0, len(s.m))
	for _, id := range s.IDs() {
		out = append(out, s.m[id])
	}
	return out
}

func (s Set) freeze() Set {
	s.frozen = true
	return s
}
