package ad

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/locale"
	"github.com/simp-lee/saleads/internal/middleware"
	"github.com/simp-lee/saleads/internal/pkg"
)

// AdPageHandler renders the listing and detail pages.
type AdPageHandler struct {
	svc      *Service
	listing  *ListingService
	users    domain.UserService
	resolver *locale.Resolver
}

// NewPageHandler creates a new AdPageHandler.
func NewPageHandler(svc *Service, listing *ListingService, users domain.UserService, resolver *locale.Resolver) *AdPageHandler {
	return &AdPageHandler{svc: svc, listing: listing, users: users, resolver: resolver}
}

// Index renders the public listing.
// GET /
func (h *AdPageHandler) Index(c *gin.Context) {
	h.renderListing(c, "ads/list.html", ListContext{}, gin.H{})
}

// UserAds renders the ads of one user. Authors also see their unverified ads.
// GET /users/:username/ads
func (h *AdPageHandler) UserAds(c *gin.Context) {
	author, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		pkg.PageError(c, err)
		return
	}

	lc := ListContext{AuthorID: author.ID}
	if p, ok := middleware.CurrentPrincipal(c); ok {
		lc.ViewerID = p.UserID
	}
	h.renderListing(c, "ads/user_list.html", lc, gin.H{
		"Author":  author,
		"IsOwner": lc.ViewerID == author.ID,
	})
}

func (h *AdPageHandler) renderListing(c *gin.Context, tmpl string, lc ListContext, data gin.H) {
	lang := locale.Current(c)
	listing, err := h.listing.List(c.Request.Context(), ListRequest{
		Values:   c.Request.URL.Query(),
		Path:     c.Request.URL.Path,
		Language: lang,
		Context:  lc,
	})
	if err != nil {
		pkg.PageError(c, err)
		return
	}

	cfg := h.resolver.Config()
	cards := make([]adCard, 0, len(listing.Ads))
	for i := range listing.Ads {
		cards = append(cards, newAdCard(&listing.Ads[i], lang, cfg.Preference))
	}

	data["Listing"] = listing
	data["Cards"] = cards
	data["Language"] = lang
	data["Languages"] = cfg.Supported
	data["PageSizes"] = PageSizes
	data["CSRFToken"] = middleware.GetCSRFToken(c)
	data["RequestURI"] = c.Request.URL.RequestURI()
	data["Viewer"] = viewer(c)
	c.HTML(http.StatusOK, tmpl, data)
}

// Detail renders one ad. The language query parameter selects the entry
// shown; without it the display language and then the preference order apply.
// GET /ads/:id
func (h *AdPageHandler) Detail(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.PageError(c, domain.ErrNotFound)
		return
	}

	ad, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.PageError(c, err)
		return
	}

	lang := locale.Current(c)
	if requested := c.Query("language"); h.resolver.Supported(requested) {
		lang = requested
	}
	cfg := h.resolver.Config()
	entry, _ := locale.PickEntry(ad.Entries, lang, cfg.Preference)

	c.HTML(http.StatusOK, "ads/detail.html", gin.H{
		"Ad":         ad,
		"Entry":      entry,
		"Language":   locale.Current(c),
		"Languages":  cfg.Supported,
		"CSRFToken":  middleware.GetCSRFToken(c),
		"RequestURI": c.Request.URL.RequestURI(),
		"Viewer":     viewer(c),
	})
}

// viewer returns the signed-in principal, or nil for anonymous requests.
func viewer(c *gin.Context) *domain.Principal {
	if p, ok := middleware.CurrentPrincipal(c); ok {
		return p
	}
	return nil
}

// adCard is an ad as shown in a listing, with the entry picked for the
// display language.
type adCard struct {
	Ad    *domain.Ad
	Entry domain.AdEntry
}

func newAdCard(ad *domain.Ad, lang string, preference []string) adCard {
	entry, _ := locale.PickEntry(ad.Entries, lang, preference)
	return adCard{Ad: ad, Entry: entry}
}
