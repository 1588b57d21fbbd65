// Package ad implements ad listings: the query parser, the filter builder,
// the listing orchestrator, and the ad endpoints.
package ad

import (
	"cmp"
	"math/big"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/module/category"
)

// URL parameter names of a listing query.
const (
	ParamCategory    = "c"
	ParamLanguage    = "l"
	ParamMinPrice    = "a"
	ParamMaxPrice    = "b"
	ParamOrder       = "o"
	ParamPageSize    = "n"
	ParamSearch      = "s"
	ParamSearchField = "f"
	ParamPage        = "p"
)

// Order is the sort order of a listing.
type Order int

const (
	OrderHighestPrice Order = 1
	OrderLowestPrice  Order = 2
	OrderNewest       Order = 3
	OrderOldest       Order = 4
)

// DefaultOrder is used when the order parameter is missing or invalid.
const DefaultOrder = OrderNewest

// SortKeys returns the ordering for o. Newest first is always the last key,
// so ads with equal prices keep a deterministic order.
func (o Order) SortKeys() []domain.SortKey {
	var keys []domain.SortKey
	switch o {
	case OrderHighestPrice:
		keys = []domain.SortKey{{Column: "price", Desc: true}}
	case OrderLowestPrice:
		keys = []domain.SortKey{{Column: "price"}}
	case OrderOldest:
		keys = []domain.SortKey{{Column: "created_at"}}
	}
	return append(keys, domain.SortKey{Column: "created_at", Desc: true})
}

// SearchField is an entry field that search keywords are matched against.
type SearchField int

const (
	SearchDescription SearchField = 1
	SearchName        SearchField = 2
)

// AllSearchFields is the default set of search fields.
var AllSearchFields = []SearchField{SearchDescription, SearchName}

// Column returns the entry column searched for f.
func (f SearchField) Column() string {
	if f == SearchName {
		return "name"
	}
	return "description"
}

// PageSizes lists the allowed page sizes. The first is the default.
var PageSizes = []int{10, 25, 50}

// DefaultPageSize is used when the page size parameter is missing or invalid.
const DefaultPageSize = 10

const maxSearchLength = 200

// Price bounds follow the precision of domain.Ad.Price.
const (
	priceMaxDigits     = 12
	priceDecimalPlaces = 2
)

var minPrice = decimal.New(1, -priceDecimalPlaces)

// Query is the cleaned filter, sort and page size of a listing request.
// Every field holds a usable value; invalid input falls back to defaults.
type Query struct {
	// Categories are the selected categories ordered by id.
	Categories []*category.Node
	// Languages are in the order of the supported languages.
	Languages    []string
	MinPrice     decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
	Search       string
	SearchFields []SearchField
	Order        Order
	PageSize     int
}

// QueryContext holds what ParseQuery needs besides the raw parameters.
type QueryContext struct {
	// Language is the current display language and the default filter language.
	Language   string
	Supported  []string
	Categories *category.Cache
}

// ParseQuery cleans raw listing parameters. It never fails: invalid values
// are dropped, and empty results fall back to the defaults.
func ParseQuery(values url.Values, qc QueryContext) Query {
	q := Query{
		Categories:   parseCategories(values[ParamCategory], qc.Categories),
		Languages:    parseLanguages(values[ParamLanguage], qc),
		MinPrice:     parsePrice(last(values[ParamMinPrice])),
		MaxPrice:     parsePrice(last(values[ParamMaxPrice])),
		Search:       parseSearch(last(values[ParamSearch])),
		SearchFields: parseSearchFields(values[ParamSearchField]),
		Order:        parseOrder(last(values[ParamOrder])),
		PageSize:     parsePageSize(last(values[ParamPageSize])),
	}
	if q.MinPrice.Valid && q.MaxPrice.Valid && q.MinPrice.Decimal.GreaterThan(q.MaxPrice.Decimal) {
		q.MinPrice = decimal.NullDecimal{}
	}
	return q
}

func last(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

func parseCategories(raw []string, cache *category.Cache) []*category.Node {
	if cache == nil {
		return nil
	}
	var nodes []*category.Node
	for _, v := range raw {
		id, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			continue
		}
		n, ok := cache.Get(uint(id))
		if !ok || slices.Contains(nodes, n) {
			continue
		}
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *category.Node) int { return cmp.Compare(a.ID, b.ID) })
	return nodes
}

func parseLanguages(raw []string, qc QueryContext) []string {
	var langs []string
	for _, lang := range qc.Supported {
		if slices.Contains(raw, lang) {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return []string{qc.Language}
	}
	return langs
}

// parsePrice accepts a decimal that fits the price column and is at least
// the smallest price. Trailing zeros count as decimal places.
func parsePrice(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}

	coef := new(big.Int).Abs(d.Coefficient())
	exp := int(d.Exponent())
	digits := len(coef.String())
	decimals := 0
	if exp >= 0 {
		if coef.Sign() != 0 {
			digits += exp
		}
	} else {
		decimals = -exp
		if decimals > digits {
			digits = decimals
		}
	}

	switch {
	case digits > priceMaxDigits,
		decimals > priceDecimalPlaces,
		digits-decimals > priceMaxDigits-priceDecimalPlaces,
		d.LessThan(minPrice):
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func parseSearch(raw string) string {
	s := strings.TrimSpace(raw)
	if utf8.RuneCountInString(s) > maxSearchLength {
		return ""
	}
	return s
}

func parseSearchFields(raw []string) []SearchField {
	var fields []SearchField
	for _, f := range AllSearchFields {
		if slices.Contains(raw, strconv.Itoa(int(f))) {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return slices.Clone(AllSearchFields)
	}
	return fields
}

func parseOrder(raw string) Order {
	for _, o := range []Order{OrderHighestPrice, OrderLowestPrice, OrderNewest, OrderOldest} {
		if raw == strconv.Itoa(int(o)) {
			return o
		}
	}
	return DefaultOrder
}

func parsePageSize(raw string) int {
	for _, size := range PageSizes {
		if raw == strconv.Itoa(size) {
			return size
		}
	}
	return DefaultPageSize
}

// CategoryIDs returns the ids of the selected categories.
func (q Query) CategoryIDs() []uint {
	ids := make([]uint, 0, len(q.Categories))
	for _, n := range q.Categories {
		ids = append(ids, n.ID)
	}
	return ids
}

// Values encodes q as listing parameters. Parsing the result with the same
// context yields a query equal to q.
func (q Query) Values() url.Values {
	v := url.Values{}
	for _, id := range q.CategoryIDs() {
		v[ParamCategory] = append(v[ParamCategory], strconv.FormatUint(uint64(id), 10))
	}
	v[ParamLanguage] = slices.Clone(q.Languages)
	if q.MinPrice.Valid {
		v[ParamMinPrice] = []string{q.MinPrice.Decimal.StringFixed(priceDecimalPlaces)}
	}
	if q.MaxPrice.Valid {
		v[ParamMaxPrice] = []string{q.MaxPrice.Decimal.StringFixed(priceDecimalPlaces)}
	}
	v[ParamOrder] = []string{strconv.Itoa(int(q.Order))}
	v[ParamPageSize] = []string{strconv.Itoa(q.PageSize)}
	if q.Search != "" {
		v[ParamSearch] = []string{q.Search}
	}
	for _, f := range q.SearchFields {
		v[ParamSearchField] = append(v[ParamSearchField], strconv.Itoa(int(f)))
	}
	return v
}

// Equal reports whether q and other select, sort and page the same ads.
func (q Query) Equal(other Query) bool {
	return slices.Equal(q.CategoryIDs(), other.CategoryIDs()) &&
		slices.Equal(q.Languages, other.Languages) &&
		nullDecimalEqual(q.MinPrice, other.MinPrice) &&
		nullDecimalEqual(q.MaxPrice, other.MaxPrice) &&
		q.Search == other.Search &&
		slices.Equal(q.SearchFields, other.SearchFields) &&
		q.Order == other.Order &&
		q.PageSize == other.PageSize
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
