package ad

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/simp-lee/saleads/internal/cond"
	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/module/category"
	"github.com/simp-lee/saleads/internal/pkg"
)

// NeighborPageSpan is the number of page links shown on each side of the
// current page.
const NeighborPageSpan = 3

// CategoryLoader builds the per-request category cache.
type CategoryLoader interface {
	LoadCache(ctx context.Context) (*category.Cache, error)
}

// ListContext selects whose ads a listing shows and to whom.
type ListContext struct {
	// AuthorID limits the listing to one user's ads. Zero lists everyone's.
	AuthorID uint
	// ViewerID is the signed-in user, zero when anonymous.
	ViewerID uint
}

// conditions returns the terms a listing context adds to the query filter.
// Unverified ads are shown only to their author on the author's own listing.
func (lc ListContext) conditions() []cond.Expr {
	if lc.AuthorID == 0 {
		return []cond.Expr{VerifiedOnly()}
	}
	terms := []cond.Expr{AuthoredBy(lc.AuthorID)}
	if lc.ViewerID != lc.AuthorID {
		terms = append(terms, VerifiedOnly())
	}
	return terms
}

// ListRequest is one listing request.
type ListRequest struct {
	Values url.Values
	// Path is the request path the page and category links point at.
	Path string
	// Language is the display language. Empty means the first supported one.
	Language string
	Context  ListContext
}

// TreeNode is a category of the listing tree with its matching ad count.
type TreeNode struct {
	ID       uint       `json:"id"`
	Name     string     `json:"name"`
	URL      string     `json:"url"`
	AdCount  int64      `json:"ad_count"`
	Selected bool       `json:"selected"`
	Children []TreeNode `json:"children"`
}

// Listing is one page of a filtered ad listing.
type Listing struct {
	Ads           []domain.Ad `json:"ads"`
	Total         int64       `json:"total"`
	Page          int         `json:"page"`
	NumPages      int         `json:"num_pages"`
	PageSize      int         `json:"page_size"`
	Query         Query       `json:"-"`
	Filters       url.Values  `json:"filters"`
	CategoryTree  []TreeNode  `json:"category_tree"`
	PreviousPages []int       `json:"previous_pages"`
	NextPages     []int       `json:"next_pages"`
	PageURL       URLTemplate `json:"page_url"`
	CategoryURL   URLTemplate `json:"category_url"`
}

// PageLink returns the link to page p under the same filter.
func (l *Listing) PageLink(p int) string {
	return l.PageURL.Fill(strconv.Itoa(p))
}

// HasPrevious reports whether a page precedes the current one.
func (l *Listing) HasPrevious() bool { return l.Page > 1 }

// HasNext reports whether a page follows the current one.
func (l *Listing) HasNext() bool { return l.Page < l.NumPages }

// ListingService builds ad listings.
type ListingService struct {
	ads        domain.AdRepository
	categories CategoryLoader
	languages  []string
	logger     *slog.Logger
}

// NewListingService creates a ListingService. languages are the supported
// languages in preference order. A nil logger uses slog.Default().
func NewListingService(ads domain.AdRepository, categories CategoryLoader, languages []string, logger *slog.Logger) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{ads: ads, categories: categories, languages: languages, logger: logger}
}

// List returns the requested page of the listing. A page past the last one
// is a not-found error.
func (s *ListingService) List(ctx context.Context, req ListRequest) (*Listing, error) {
	start := time.Now()

	cache, err := s.categories.LoadCache(ctx)
	if err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" && len(s.languages) > 0 {
		lang = s.languages[0]
	}
	q := ParseQuery(req.Values, QueryContext{
		Language:   lang,
		Supported:  s.languages,
		Categories: cache,
	})
	contextTerms := req.Context.conditions()

	filter, err := BuildFilter(ctx, q)
	if err != nil {
		return nil, err
	}
	where := cond.All(append([]cond.Expr{filter}, contextTerms...)...)

	total, err := s.ads.Count(ctx, where)
	if err != nil {
		return nil, err
	}
	page, err := pkg.FetchPage(ctx, last(req.Values[ParamPage]), q.PageSize, total,
		func(ctx context.Context, offset, limit int) ([]domain.Ad, error) {
			return s.ads.Find(ctx, domain.AdFindOptions{
				Where:  where,
				Order:  q.Order.SortKeys(),
				Offset: offset,
				Limit:  limit,
			})
		})
	if err != nil {
		return nil, err
	}

	params := q.Values()
	pageURL := NewURLTemplate(req.Path, params, ParamPage)
	categoryParams := cloneValues(params)
	categoryParams.Del(ParamCategory)
	categoryURL := NewURLTemplate(req.Path, categoryParams, ParamCategory)

	tree, err := s.categoryTree(ctx, cache, q, contextTerms, categoryURL)
	if err != nil {
		return nil, err
	}

	previous, next := pkg.NeighborPages(page.CurrentPage, page.TotalPages, NeighborPageSpan)

	s.logger.LogAttrs(ctx, slog.LevelDebug, "listing built",
		slog.Int64("total", total),
		slog.Int("page", page.CurrentPage),
		slog.Int("num_pages", page.TotalPages),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Listing{
		Ads:           page.Items,
		Total:         page.TotalItems,
		Page:          page.CurrentPage,
		NumPages:      page.TotalPages,
		PageSize:      page.ItemsPerPage,
		Query:         q,
		Filters:       params,
		CategoryTree:  tree,
		PreviousPages: previous,
		NextPages:     next,
		PageURL:       pageURL,
		CategoryURL:   categoryURL,
	}, nil
}

// categoryTree counts the ads of every category under the query filter
// without its category restriction.
func (s *ListingService) categoryTree(ctx context.Context, cache *category.Cache, q Query, contextTerms []cond.Expr, link URLTemplate) ([]TreeNode, error) {
	filter, err := BuildFilter(ctx, q, WithoutCategories())
	if err != nil {
		return nil, err
	}
	own, err := s.ads.CountByCategory(ctx, cond.All(append([]cond.Expr{filter}, contextTerms...)...))
	if err != nil {
		return nil, err
	}

	counter := category.NewSubtreeCounter(cache, own)
	selected := make(map[uint]bool, len(q.Categories))
	for _, id := range q.CategoryIDs() {
		selected[id] = true
	}

	var walk func(nodes []*category.Node) ([]TreeNode, error)
	walk = func(nodes []*category.Node) ([]TreeNode, error) {
		out := make([]TreeNode, 0, len(nodes))
		for _, n := range nodes {
			count, err := counter.Count(ctx, n.ID)
			if err != nil {
				return nil, err
			}
			children, err := n.SortedChildren(ctx)
			if err != nil {
				return nil, err
			}
			sub, err := walk(children)
			if err != nil {
				return nil, err
			}
			out = append(out, TreeNode{
				ID:       n.ID,
				Name:     n.Name,
				URL:      link.Fill(strconv.FormatUint(uint64(n.ID), 10)),
				AdCount:  count,
				Selected: selected[n.ID],
				Children: sub,
			})
		}
		return out, nil
	}
	return walk(cache.Roots())
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
