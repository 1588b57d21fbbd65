package pkg

import (
	"context"
	"errors"
	"math"
	"regexp"
	"slices"
	"strconv"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/saleads/internal/domain"
)

// LastPageToken selects the last page when given as a page number.
const LastPageToken = "last"

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LastPage is the page number ParsePageNumber returns for LastPageToken.
// The paginator clamps it to the last existing page.
const LastPage = math.MaxInt

// ParsePageNumber parses a requested page number. An empty value is the
// first page and LastPageToken is LastPage. Anything else that is not a
// positive integer is a not-found error.
func ParsePageNumber(raw string) (int, error) {
	switch raw {
	case "":
		return 1, nil
	case LastPageToken:
		return LastPage, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewAppError(domain.CodeNotFound, "invalid page", err)
	}
	if page < 1 {
		return 0, domain.NewAppError(domain.CodeNotFound, "invalid page", nil)
	}
	return page, nil
}

// errPageOutOfRange stops the slice callback when the paginator clamped a
// page past the end.
var errPageOutOfRange = errors.New("page out of range")

// FetchPage returns the page named by raw out of total items, loading the
// items with fetch. Unlike the paginator on its own, a numbered page past
// the last one is a not-found error rather than the last page, and fetch is
// not called for it.
func FetchPage[T any](ctx context.Context, raw string, pageSize int, total int64,
	fetch func(ctx context.Context, offset, limit int) ([]T, error)) (*pagination.Pagination[T], error) {
	requested, err := ParsePageNumber(raw)
	if err != nil {
		return nil, err
	}

	p := pagination.NewPaginator[T](
		pagination.WithItemsPerPage[T](pageSize),
		pagination.WithKnownTotal[T](total),
		pagination.WithSliceCallback[T](func(ctx context.Context, offset, limit int) ([]T, error) {
			if requested != LastPage && offset/limit+1 != requested {
				return nil, errPageOutOfRange
			}
			return fetch(ctx, offset, limit)
		}),
	)
	result, err := p.Paginate(ctx, requested)
	if errors.Is(err, errPageOutOfRange) {
		return nil, domain.NewAppError(domain.CodeNotFound, "invalid page", nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// NeighborPages returns up to span page numbers on each side of page,
// clipped to [1, numPages].
func NeighborPages(page, numPages, span int) (previous, next []int) {
	for p := max(page-span, 1); p < page; p++ {
		previous = append(previous, p)
	}
	for p := page + 1; p <= min(page+span, numPages); p++ {
		next = append(next, p)
	}
	return previous, next
}

// Paginate returns a GORM scope that applies OFFSET and, when limit is
// positive, LIMIT.
func Paginate(offset, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if offset > 0 {
			db = db.Offset(offset)
		}
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	}
}

// Sort returns a GORM scope that applies ORDER BY for each key in turn.
// Keys naming columns outside allowed, or that are not plain identifiers,
// are silently ignored.
func Sort(keys []domain.SortKey, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, k := range keys {
			if !validFieldName.MatchString(k.Column) || !slices.Contains(allowed, k.Column) {
				continue
			}
			direction := "asc"
			if k.Desc {
				direction = "desc"
			}
			db = db.Order(k.Column + " " + direction)
		}
		return db
	}
}
