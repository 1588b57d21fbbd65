package ad

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/simp-lee/saleads/internal/domain"
)

// CreateInput is a validated request to publish an ad.
type CreateInput struct {
	AuthorID   uint
	CategoryID uint
	Price      string
	Entries    []domain.AdEntry
	Images     []string
}

// Service creates, reads and edits single ads.
type Service struct {
	ads        domain.AdRepository
	categories domain.CategoryRepository
	languages  []string
	autoVerify bool
	logger     *slog.Logger
}

// NewService creates an ad Service. languages are the languages entries may
// be written in. When autoVerify is set new ads skip moderation.
func NewService(ads domain.AdRepository, categories domain.CategoryRepository, languages []string, autoVerify bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ads:        ads,
		categories: categories,
		languages:  languages,
		autoVerify: autoVerify,
		logger:     logger,
	}
}

// Create validates in and stores a new ad.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Ad, error) {
	price := parsePrice(in.Price)
	if !price.Valid {
		return nil, domain.NewAppError(domain.CodeValidation,
			"price must be at least 0.01 with at most 10 whole digits and 2 decimal places", nil)
	}

	cat, err := s.ultimateCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	entries, err := s.cleanEntries(in.Entries)
	if err != nil {
		return nil, err
	}

	if len(in.Images) > domain.MaxAdImages {
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("an ad can have at most %d images", domain.MaxAdImages), nil)
	}
	images := make([]domain.AdImage, 0, len(in.Images))
	for i, path := range in.Images {
		img, err := newImage(i+1, path)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	ad := &domain.Ad{
		AuthorID:   in.AuthorID,
		CategoryID: cat.ID,
		Price:      price.Decimal,
		Verified:   s.autoVerify,
		Entries:    entries,
		Images:     images,
	}
	if err := s.ads.Create(ctx, ad); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ad created",
		slog.String("ad_id", ad.ID.String()),
		slog.Uint64("author_id", uint64(ad.AuthorID)),
		slog.Uint64("category_id", uint64(ad.CategoryID)),
		slog.Bool("verified", ad.Verified),
	)
	return s.ads.GetByID(ctx, ad.ID)
}

func (s *Service) ultimateCategory(ctx context.Context, id uint) (*domain.Category, error) {
	cat, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewAppError(domain.CodeValidation, "category does not exist", nil)
		}
		return nil, err
	}
	if !cat.Ultimate {
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("category %q does not accept ads", cat.Name), nil)
	}
	return cat, nil
}

func newImage(number int, path string) (domain.AdImage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.AdImage{}, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("image %d has an empty path", number), nil)
	}
	return domain.AdImage{Number: number, Path: path}, nil
}

func (s *Service) cleanEntries(in []domain.AdEntry) ([]domain.AdEntry, error) {
	if len(in) == 0 {
		return nil, domain.NewAppError(domain.CodeValidation, "at least one entry is required", nil)
	}
	entries := make([]domain.AdEntry, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		lang := strings.TrimSpace(e.Language)
		if !slices.Contains(s.languages, lang) {
			return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unsupported language %q", e.Language), nil)
		}
		if seen[lang] {
			return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("duplicate entry for language %q", lang), nil)
		}
		seen[lang] = true

		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("entry %q needs a name", lang), nil)
		}
		entries = append(entries, domain.AdEntry{
			Language:    lang,
			Name:        name,
			Description: strings.TrimSpace(e.Description),
		})
	}
	return entries, nil
}

// Get returns the ad with the given id. Unverified ads are visible only to
// their author and to staff; everyone else gets not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.Verified {
		return ad, nil
	}
	if p, ok := domain.PrincipalFrom(ctx); ok && (p.Staff || p.UserID == ad.AuthorID) {
		return ad, nil
	}
	return nil, domain.ErrNotFound
}
