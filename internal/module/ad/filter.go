package ad

import (
	"context"
	"slices"
	"strings"

	"github.com/simp-lee/saleads/internal/cond"
	"github.com/simp-lee/saleads/internal/module/category"
)

// Schema describes the ads table for compiling filters.
var Schema = cond.Schema{
	Table:  "ads",
	Fields: []string{"id", "author_id", "category_id", "price", "verified", "created_at"},
	Relations: map[string]cond.Relation{
		"entries": {
			Schema: cond.Schema{
				Table:  "ad_entries",
				Fields: []string{"language", "name", "description"},
			},
			ForeignKey: "ad_id",
		},
	},
}

type filterOptions struct {
	withoutCategories bool
}

// FilterOption configures BuildFilter.
type FilterOption func(*filterOptions)

// WithoutCategories leaves out the category restriction. Category counts
// use it so that every category shows what selecting it would match.
func WithoutCategories() FilterOption {
	return func(o *filterOptions) { o.withoutCategories = true }
}

// BuildFilter returns the condition selecting the ads that match q.
func BuildFilter(ctx context.Context, q Query, opts ...FilterOption) (cond.Expr, error) {
	var o filterOptions
	for _, opt := range opts {
		opt(&o)
	}

	var terms []cond.Expr
	if !o.withoutCategories && len(q.Categories) > 0 {
		ids, err := categoryUnion(ctx, q.Categories)
		if err != nil {
			return nil, err
		}
		terms = append(terms, cond.In("category_id", ids))
	}

	terms = append(terms, cond.Has("entries", cond.In("language", q.Languages)))

	if q.MinPrice.Valid {
		terms = append(terms, cond.Gte("price", q.MinPrice.Decimal))
	}
	if q.MaxPrice.Valid {
		terms = append(terms, cond.Lte("price", q.MaxPrice.Decimal))
	}

	for _, kw := range Keywords(q.Search) {
		var anyField []cond.Expr
		for _, f := range q.SearchFields {
			anyField = append(anyField, cond.Has("entries", cond.IContains(f.Column(), kw)))
		}
		terms = append(terms, cond.Any(anyField...))
	}

	return cond.All(terms...), nil
}

// VerifiedOnly restricts a listing to moderated ads.
func VerifiedOnly() cond.Expr {
	return cond.Eq("verified", true)
}

// AuthoredBy restricts a listing to the ads of one user.
func AuthoredBy(userID uint) cond.Expr {
	return cond.Eq("author_id", userID)
}

// Keywords splits search text on whitespace. Repeated words count once.
func Keywords(search string) []string {
	var out []string
	for _, w := range strings.Fields(search) {
		if !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

// categoryUnion returns the ids of the selected categories and all their
// descendants in ascending order.
func categoryUnion(ctx context.Context, nodes []*category.Node) ([]uint, error) {
	union := category.NewSet()
	for _, n := range nodes {
		union.Add(n)
		desc, err := n.Descendants(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range desc.Nodes() {
			union.Add(d)
		}
	}
	return union.IDs(), nil
}
