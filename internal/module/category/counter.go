package category

import (
	"context"
	"fmt"

	"github.com/simp-lee/saleads/internal/domain"
)

// SubtreeCounter sums per-category ad counts over subtrees. own holds the
// ads attached directly to each category under the caller's filter, so a
// counter is only valid for the request that built it.
type SubtreeCounter struct {
	cache *Cache
	own   map[uint]int64
	memo  map[uint]int64
}

// NewSubtreeCounter returns a counter over cache. Categories missing from own
// count zero ads of their own.
func NewSubtreeCounter(cache *Cache, own map[uint]int64) *SubtreeCounter {
	return &SubtreeCounter{cache: cache, own: own, memo: make(map[uint]int64)}
}

// Count returns the ads of the category with the given id plus those of all
// its descendants.
func (sc *SubtreeCounter) Count(ctx context.Context, id uint) (int64, error) {
	if total, ok := sc.memo[id]; ok {
		return total, nil
	}
	n, ok := sc.cache.Get(id)
	if !ok {
		return 0, domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("category %d not found", id), nil)
	}
	children, err := n.AllChildren(ctx)
	if err != nil {
		return 0, err
	}
	total := sc.own[id]
	for _, child := range children {
		sub, err := sc.Count(ctx, child.ID)
		if err != nil {
			return 0, err
		}
		total += sub
	}
	sc.memo[id] = total
	return total, nil
}
