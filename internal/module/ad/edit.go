package ad

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/simp-lee/saleads/internal/domain"
)

// UpdateInput changes the price and category of an ad.
type UpdateInput struct {
	CategoryID uint
	Price      string
}

// Update changes the price and category of the ad with the given id.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	price := parsePrice(in.Price)
	if !price.Valid {
		return nil, domain.NewAppError(domain.CodeValidation,
			"price must be at least 0.01 with at most 10 whole digits and 2 decimal places", nil)
	}
	cat, err := s.ultimateCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	ad.Price = price.Decimal
	ad.CategoryID = cat.ID
	return s.save(ctx, ad, "update")
}

// Delete removes the ad with the given id.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ads.Delete(ctx, ad.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "ad deleted", slog.String("ad_id", ad.ID.String()))
	return nil
}

// AddEntry adds the text of the ad in a new language.
func (s *Service) AddEntry(ctx context.Context, id uuid.UUID, e domain.AdEntry) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	clean, err := s.cleanEntries([]domain.AdEntry{e})
	if err != nil {
		return nil, err
	}
	if _, ok := ad.Entry(clean[0].Language); ok {
		return nil, domain.NewAppError(domain.CodeAlreadyExists,
			fmt.Sprintf("entry for language %q already exists", clean[0].Language), nil)
	}

	ad.Entries = append(ad.Entries, clean[0])
	return s.save(ctx, ad, "add entry")
}

// EditEntry replaces the name and description of the entry in language.
func (s *Service) EditEntry(ctx context.Context, id uuid.UUID, language, name, description string) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	i := entryIndex(ad, language)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	clean, err := s.cleanEntries([]domain.AdEntry{{Language: language, Name: name, Description: description}})
	if err != nil {
		return nil, err
	}

	ad.Entries[i] = clean[0]
	return s.save(ctx, ad, "edit entry")
}

// DeleteEntry removes the entry in language. The last entry of an ad
// cannot be removed.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID, language string) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	i := entryIndex(ad, language)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	if len(ad.Entries) == 1 {
		return nil, domain.NewAppError(domain.CodeValidation, "at least one entry is required", nil)
	}

	ad.Entries = slices.Delete(ad.Entries, i, i+1)
	return s.save(ctx, ad, "delete entry")
}

// AddImage appends an image after the existing ones.
func (s *Service) AddImage(ctx context.Context, id uuid.UUID, path string) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(ad.Images) >= domain.MaxAdImages {
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("an ad can have at most %d images", domain.MaxAdImages), nil)
	}
	img, err := newImage(len(ad.Images)+1, path)
	if err != nil {
		return nil, err
	}

	ad.Images = append(ad.Images, img)
	return s.save(ctx, ad, "add image")
}

// DeleteImage removes image number; the images after it move up by one.
func (s *Service) DeleteImage(ctx context.Context, id uuid.UUID, number int) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if number < 1 || number > len(ad.Images) {
		return nil, domain.ErrNotFound
	}

	ad.Images = slices.Delete(ad.Images, number-1, number)
	return s.save(ctx, ad, "delete image")
}

// ReorderImages arranges the images so that order[i] becomes number i+1.
// order must name every current image exactly once.
func (s *Service) ReorderImages(ctx context.Context, id uuid.UUID, order []int) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isPermutation(order, len(ad.Images)) {
		return nil, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("order must list image numbers 1 to %d once each", len(ad.Images)), nil)
	}

	images := make([]domain.AdImage, 0, len(order))
	for _, n := range order {
		images = append(images, ad.Images[n-1])
	}
	ad.Images = images
	return s.save(ctx, ad, "reorder images")
}

// MoveImage moves image from to position to, shifting the images between.
func (s *Service) MoveImage(ctx context.Context, id uuid.UUID, from, to int) (*domain.Ad, error) {
	ad, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	n := len(ad.Images)
	if from < 1 || from > n {
		return nil, domain.ErrNotFound
	}
	if to < 1 || to > n {
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("position must be between 1 and %d", n), nil)
	}

	img := ad.Images[from-1]
	ad.Images = slices.Insert(slices.Delete(ad.Images, from-1, from), to-1, img)
	return s.save(ctx, ad, "move image")
}

// editable loads an ad the caller may change. Authors edit their own ads
// and staff edit any. Others see unverified ads as missing.
func (s *Service) editable(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	p, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Staff || p.UserID == ad.AuthorID {
		return ad, nil
	}
	if !ad.Verified {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrForbidden
}

// save stores an edited ad. Every edit sends the ad back to moderation.
func (s *Service) save(ctx context.Context, ad *domain.Ad, action string) (*domain.Ad, error) {
	ad.Verified = s.autoVerify
	if err := s.ads.Save(ctx, ad); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "ad edited",
		slog.String("ad_id", ad.ID.String()),
		slog.String("action", action),
		slog.Bool("verified", ad.Verified),
	)
	return s.ads.GetByID(ctx, ad.ID)
}

func entryIndex(ad *domain.Ad, language string) int {
	return slices.IndexFunc(ad.Entries, func(e domain.AdEntry) bool { return e.Language == language })
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n+1)
	for _, v := range order {
		if v < 1 || v > n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
