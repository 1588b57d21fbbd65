package ad

import (
	"net/url"
	"strings"

	"github.com/simp-lee/saleads/internal/module/category"
)

// URLTemplate is a link with one "{}" placeholder. Literal braces are
// doubled, so any value can be carried through the template.
type URLTemplate string

var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

// NewURLTemplate returns a template for path with params, where the
// placeholder is the value of the parameter name.
func NewURLTemplate(path string, params url.Values, name string) URLTemplate {
	var b strings.Builder
	b.WriteString(braceEscaper.Replace(path))
	b.WriteByte('?')
	if encoded := params.Encode(); encoded != "" {
		b.WriteString(braceEscaper.Replace(encoded))
		b.WriteByte('&')
	}
	b.WriteString(braceEscaper.Replace(url.QueryEscape(name)))
	b.WriteString("={}")
	return URLTemplate(b.String())
}

// Fill substitutes v for the placeholder and undoubles literal braces.
func (t URLTemplate) Fill(v string) string {
	s := string(t)
	var b strings.Builder
	b.Grow(len(s) + len(v))
	for i := 0; i < len(s); i++ {
		if i+1 < len(s) {
			switch s[i : i+2] {
			case "{{":
				b.WriteByte('{')
				i++
				continue
			case "}}":
				b.WriteByte('}')
				i++
				continue
			case "{}":
				b.WriteString(url.QueryEscape(v))
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// CategoryURL returns the public listing link for one category.
func CategoryURL(id uint) string {
	return category.CanonicalURL(id)
}
