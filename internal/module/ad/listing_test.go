package ad

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/module/category"
)

func newListingService(f *fixture) *ListingService {
	return NewListingService(f.ads, category.NewService(f.categories, nil), []string{"en", "ru"}, nil)
}

func list(t *testing.T, svc *ListingService, values url.Values, lc ListContext) *Listing {
	t.Helper()
	l, err := svc.List(context.Background(), ListRequest{Values: values, Path: "/", Language: "en", Context: lc})
	if err != nil {
		t.Fatalf("List(%v): %v", values, err)
	}
	return l
}

func findNode(nodes []TreeNode, id uint) (TreeNode, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := findNode(n.Children, id); ok {
			return found, true
		}
	}
	return TreeNode{}, false
}

func TestListingService_FiltersByRootCategoryPriceAndName(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	l := list(t, svc, url.Values{
		ParamCategory:    {"1"},
		ParamMaxPrice:    {"100"},
		ParamSearch:      {"spam"},
		ParamSearchField: {"2"},
		ParamOrder:       {"2"},
	}, ListContext{})

	if got := adIDs(l.Ads); !equalUUIDs(got, f.a.ID) {
		t.Errorf("Ads = %v, want only A", got)
	}
	if l.Total != 1 || l.Page != 1 || l.NumPages != 1 {
		t.Errorf("Total/Page/NumPages = %d/%d/%d, want 1/1/1", l.Total, l.Page, l.NumPages)
	}
}

func TestListingService_InvalidPageSizeAndMissingPage(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	l := list(t, svc, url.Values{ParamPageSize: {"999"}, ParamSearch: {"spam"}}, ListContext{})
	if l.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", l.PageSize, DefaultPageSize)
	}
	if l.Total != 1 {
		t.Fatalf("Total = %d, want 1", l.Total)
	}

	_, err := svc.List(context.Background(), ListRequest{
		Values:   url.Values{ParamPageSize: {"999"}, ParamSearch: {"spam"}, ParamPage: {"2"}},
		Path:     "/",
		Language: "en",
	})
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found for page 2, got %v", err)
	}
}

func TestListingService_EmptyResultHasOnePage(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	l := list(t, svc, url.Values{ParamSearch: {"nothing-matches-this"}}, ListContext{})
	if l.Total != 0 || l.NumPages != 1 || l.Page != 1 {
		t.Errorf("Total/Page/NumPages = %d/%d/%d, want 0/1/1", l.Total, l.Page, l.NumPages)
	}
	if len(l.Ads) != 0 {
		t.Errorf("Ads = %v, want none", adIDs(l.Ads))
	}
}

func TestListingService_Pages(t *testing.T) {
	f := seedFixture(t)
	ctx := context.Background()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	// 21 more verified ads make 24 in total, three pages of ten.
	for i := range 21 {
		ad := domain.Ad{
			AuthorID:   f.bob.ID,
			CategoryID: 3,
			Price:      decimal.NewFromInt(int64(i + 1)),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			Verified:   true,
			Entries:    []domain.AdEntry{{Language: "en", Name: "filler"}},
		}
		if err := f.ads.Create(ctx, &ad); err != nil {
			t.Fatalf("seed filler: %v", err)
		}
	}
	svc := newListingService(f)

	tests := []struct {
		page         string
		wantPage     int
		wantAds      int
		wantPrevious []int
		wantNext     []int
	}{
		{"", 1, 10, nil, []int{2, 3}},
		{"2", 2, 10, []int{1}, []int{3}},
		{"last", 3, 4, []int{1, 2}, nil},
	}

	for _, tt := range tests {
		t.Run("page "+tt.page, func(t *testing.T) {
			v := url.Values{}
			if tt.page != "" {
				v.Set(ParamPage, tt.page)
			}
			l := list(t, svc, v, ListContext{})
			if l.Total != 24 || l.NumPages != 3 {
				t.Fatalf("Total/NumPages = %d/%d, want 24/3", l.Total, l.NumPages)
			}
			if l.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", l.Page, tt.wantPage)
			}
			if len(l.Ads) != tt.wantAds {
				t.Errorf("len(Ads) = %d, want %d", len(l.Ads), tt.wantAds)
			}
			if !slices.Equal(l.PreviousPages, tt.wantPrevious) || !slices.Equal(l.NextPages, tt.wantNext) {
				t.Errorf("neighbors = %v / %v, want %v / %v", l.PreviousPages, l.NextPages, tt.wantPrevious, tt.wantNext)
			}
		})
	}

	for _, bad := range []string{"0", "4", "abc", "-1"} {
		_, err := svc.List(ctx, ListRequest{Values: url.Values{ParamPage: {bad}}, Path: "/", Language: "en"})
		if !domain.IsNotFound(err) {
			t.Errorf("page %q: expected not found, got %v", bad, err)
		}
	}
}

func TestListingService_CategoryTreeCounts(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	tests := []struct {
		name   string
		values url.Values
		want   map[uint]int64
	}{
		{"all verified", url.Values{}, map[uint]int64{1: 3, 2: 2, 3: 1, 4: 2, 5: 0}},
		{"selection does not change counts", url.Values{ParamCategory: {"2"}}, map[uint]int64{1: 3, 2: 2, 3: 1, 4: 2, 5: 0}},
		{"search narrows counts", url.Values{ParamSearch: {"spam"}}, map[uint]int64{1: 1, 2: 1, 3: 0, 4: 1, 5: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := list(t, svc, tt.values, ListContext{})
			for id, want := range tt.want {
				n, ok := findNode(l.CategoryTree, id)
				if !ok {
					t.Fatalf("category %d missing from tree", id)
				}
				if n.AdCount != want {
					t.Errorf("count[%d] = %d, want %d", id, n.AdCount, want)
				}
			}
		})
	}
}

func TestListingService_CategoryTreeShape(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	l := list(t, svc, url.Values{ParamCategory: {"2"}, ParamOrder: {"1"}}, ListContext{})

	var roots []string
	for _, n := range l.CategoryTree {
		roots = append(roots, n.Name)
	}
	if !slices.Equal(roots, []string{"Electronics", "Vehicles"}) {
		t.Errorf("roots = %v, want sorted by name", roots)
	}

	vehicles, _ := findNode(l.CategoryTree, 1)
	var children []string
	for _, n := range vehicles.Children {
		children = append(children, n.Name)
	}
	if !slices.Equal(children, []string{"Bikes", "Cars"}) {
		t.Errorf("children = %v, want [Bikes Cars]", children)
	}

	cars, _ := findNode(l.CategoryTree, 2)
	if !cars.Selected || vehicles.Selected {
		t.Errorf("Selected: cars=%v vehicles=%v, want only cars", cars.Selected, vehicles.Selected)
	}

	link, err := url.Parse(vehicles.URL)
	if err != nil {
		t.Fatalf("parse %q: %v", vehicles.URL, err)
	}
	q := link.Query()
	if got := q[ParamCategory]; !slices.Equal(got, []string{"1"}) {
		t.Errorf("category link c = %v, want [1]", got)
	}
	if q.Get(ParamOrder) != "1" {
		t.Errorf("category link dropped the order: %q", vehicles.URL)
	}
}

func TestListingService_Links(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	l := list(t, svc, url.Values{ParamSearch: {"a {b}"}, ParamOrder: {"4"}}, ListContext{})

	link := l.PageLink(1)
	if !strings.HasPrefix(link, "/?") {
		t.Errorf("PageLink = %q, want the request path", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse %q: %v", link, err)
	}
	if u.Query().Get(ParamSearch) != "a {b}" || u.Query().Get(ParamPage) != "1" {
		t.Errorf("PageLink = %q lost a parameter", link)
	}
	if l.Filters.Get(ParamOrder) != "4" {
		t.Errorf("Filters = %v, want o=4", l.Filters)
	}
	if l.HasPrevious() || l.HasNext() {
		t.Error("a single page has no neighbors")
	}
}

func TestListingService_UserListing(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	tests := []struct {
		name string
		lc   ListContext
		want int64
	}{
		{"owner sees unverified", ListContext{AuthorID: f.bob.ID, ViewerID: f.bob.ID}, 2},
		{"anonymous sees verified", ListContext{AuthorID: f.bob.ID}, 1},
		{"other user sees verified", ListContext{AuthorID: f.bob.ID, ViewerID: f.alice.ID}, 1},
		{"author filter", ListContext{AuthorID: f.alice.ID}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := list(t, svc, url.Values{}, tt.lc)
			if l.Total != tt.want {
				t.Errorf("Total = %d, want %d", l.Total, tt.want)
			}
		})
	}
}

func TestListingService_DefaultsLanguage(t *testing.T) {
	f := seedFixture(t)
	svc := newListingService(f)

	l, err := svc.List(context.Background(), ListRequest{Values: url.Values{}, Path: "/"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(l.Query.Languages, []string{"en"}) {
		t.Errorf("Languages = %v, want [en]", l.Query.Languages)
	}
	if l.Total != 3 {
		t.Errorf("Total = %d, want 3", l.Total)
	}
}

type failingLoader struct{ err error }

func (l failingLoader) LoadCache(context.Context) (*category.Cache, error) { return nil, l.err }

func TestListingService_CategoryLoadError(t *testing.T) {
	f := seedFixture(t)
	boom := errors.New("boom")
	svc := NewListingService(f.ads, failingLoader{err: boom}, []string{"en"}, nil)

	_, err := svc.List(context.Background(), ListRequest{Values: url.Values{}, Path: "/"})
	if !errors.Is(err, boom) {
		t.Errorf("expected loader error, got %v", err)
	}
}
