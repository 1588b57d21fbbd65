package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/simp-lee/saleads/internal/cond"
)

// MaxAdImages is the number of images an ad may carry.
const MaxAdImages = 7

// Ad is a sale listing. Its text lives in one AdEntry per language.
type Ad struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID   uint            `gorm:"not null;index" json:"author_id"`
	Author     User            `json:"author"`
	CategoryID uint            `gorm:"not null;index" json:"category_id"`
	Category   Category        `json:"category"`
	Price      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	Verified   bool            `gorm:"not null;default:false;index" json:"verified"`
	Entries    []AdEntry       `gorm:"constraint:OnDelete:CASCADE" json:"entries"`
	Images     []AdImage       `gorm:"constraint:OnDelete:CASCADE" json:"images"`
}

// BeforeCreate assigns a random identifier to new ads.
func (a *Ad) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AdEntry holds the localized name and description of an ad.
type AdEntry struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	AdID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ad_entry_language" json:"-"`
	Language    string    `gorm:"size:10;not null;uniqueIndex:idx_ad_entry_language" json:"language"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
}

// AdImage is a stored image of an ad. Numbers are dense, starting at 1.
type AdImage struct {
	ID     uint      `gorm:"primaryKey" json:"-"`
	AdID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ad_image_number" json:"-"`
	Number int       `gorm:"not null;uniqueIndex:idx_ad_image_number" json:"number"`
	Path   string    `gorm:"size:255;not null" json:"path"`
}

// Entry returns the entry written in language, if any.
func (a *Ad) Entry(language string) (AdEntry, bool) {
	for _, e := range a.Entries {
		if e.Language == language {
			return e, true
		}
	}
	return AdEntry{}, false
}

// SortKey orders a query by one column.
type SortKey struct {
	Column string
	Desc   bool
}

// AdFindOptions selects a window of matching ads.
type AdFindOptions struct {
	Where  cond.Expr
	Order  []SortKey
	Offset int
	Limit  int
}

// AdRepository defines the data access interface for ads.
type AdRepository interface {
	Create(ctx context.Context, ad *Ad) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ad, error)
	// Save writes the category, price and verification flag of an existing
	// ad and replaces its entries and images. Images are renumbered 1..N in
	// slice order.
	Save(ctx context.Context, ad *Ad) error
	// Delete removes an ad together with its entries and images.
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, where cond.Expr) (int64, error)
	Find(ctx context.Context, opts AdFindOptions) ([]Ad, error)
	// CountByCategory returns the number of matching ads attached directly
	// to each category. Categories without matches are absent.
	CountByCategory(ctx context.Context, where cond.Expr) (map[uint]int64, error)
}
