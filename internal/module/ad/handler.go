package ad

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/locale"
	"github.com/simp-lee/saleads/internal/middleware"
	"github.com/simp-lee/saleads/internal/pkg"
)

// AdHandler handles REST API requests for ads.
type AdHandler struct {
	svc     *Service
	listing *ListingService
}

// NewHandler creates a new AdHandler.
func NewHandler(svc *Service, listing *ListingService) *AdHandler {
	return &AdHandler{svc: svc, listing: listing}
}

// List handles GET /api/v1/ads.
func (h *AdHandler) List(c *gin.Context) {
	listing, err := h.listing.List(c.Request.Context(), ListRequest{
		Values:   c.Request.URL.Query(),
		Path:     c.Request.URL.Path,
		Language: locale.Current(c),
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, listing)
}

// Get handles GET /api/v1/ads/:id.
func (h *AdHandler) Get(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	ad, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, ad)
}

// Create handles POST /api/v1/ads.
func (h *AdHandler) Create(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}

	var req CreateAdRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	entries := make([]domain.AdEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, domain.AdEntry{Language: e.Language, Name: e.Name, Description: e.Description})
	}

	ad, err := h.svc.Create(c.Request.Context(), CreateInput{
		AuthorID:   p.UserID,
		CategoryID: req.CategoryID,
		Price:      req.Price,
		Entries:    entries,
		Images:     req.Images,
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, "ad created", ad)
}

// Update handles PUT /api/v1/ads/:id.
func (h *AdHandler) Update(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	var req UpdateAdRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	ad, err := h.svc.Update(c.Request.Context(), id, UpdateInput{CategoryID: req.CategoryID, Price: req.Price})
	respondAd(c, ad, err)
}

// Delete handles DELETE /api/v1/ads/:id.
func (h *AdHandler) Delete(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// AddEntry handles POST /api/v1/ads/:id/entries.
func (h *AdHandler) AddEntry(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	var req EntryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	ad, err := h.svc.AddEntry(c.Request.Context(), id, domain.AdEntry{
		Language:    req.Language,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, "entry added", ad)
}

// EditEntry handles PUT /api/v1/ads/:id/entries/:language.
func (h *AdHandler) EditEntry(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	var req EntryTextRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	ad, err := h.svc.EditEntry(c.Request.Context(), id, c.Param("language"), req.Name, req.Description)
	respondAd(c, ad, err)
}

// DeleteEntry handles DELETE /api/v1/ads/:id/entries/:language.
func (h *AdHandler) DeleteEntry(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	ad, err := h.svc.DeleteEntry(c.Request.Context(), id, c.Param("language"))
	respondAd(c, ad, err)
}

// AddImage handles POST /api/v1/ads/:id/images.
func (h *AdHandler) AddImage(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	var req ImageRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	ad, err := h.svc.AddImage(c.Request.Context(), id, req.Path)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, "image added", ad)
}

// ReorderImages handles PUT /api/v1/ads/:id/images.
func (h *AdHandler) ReorderImages(c *gin.Context) {
	id, err := parseAdID(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	var req ReorderImagesRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	ad, err := h.svc.ReorderImages(c.Request.Context(), id, req.Order)
	respondAd(c, ad, err)
}

// DeleteImage handles DELETE /api/v1/ads/:id/images/:number.
func (h *AdHandler) DeleteImage(c *gin.Context) {
	id, number, err := parseImageRef(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	ad, err := h.svc.DeleteImage(c.Request.Context(), id, number)
	respondAd(c, ad, err)
}

// MoveImage handles POST /api/v1/ads/:id/images/:number/move.
func (h *AdHandler) MoveImage(c *gin.Context) {
	id, number, err := parseImageRef(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	var req MoveImageRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	ad, err := h.svc.MoveImage(c.Request.Context(), id, number, req.To)
	respondAd(c, ad, err)
}

func respondAd(c *gin.Context, ad *domain.Ad, err error) {
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, ad)
}

func parseImageRef(c *gin.Context) (uuid.UUID, int, error) {
	id, err := parseAdID(c)
	if err != nil {
		return uuid.Nil, 0, err
	}
	number, err := pkg.ParseID(c, "number")
	if err != nil || number > domain.MaxAdImages {
		return uuid.Nil, 0, domain.NewAppError(domain.CodeValidation, "invalid image number: "+c.Param("number"), err)
	}
	return id, int(number), nil
}

func parseAdID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.NewAppError(domain.CodeValidation, "invalid ad id: "+c.Param("id"), err)
	}
	return id, nil
}
