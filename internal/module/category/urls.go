package category

import "strconv"

// CanonicalURL returns the listing URL that filters by the category.
func CanonicalURL(id uint) string {
	return "/?c=" + strconv.FormatUint(uint64(id), 10)
}
