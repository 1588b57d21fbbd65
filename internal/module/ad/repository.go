package ad

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simp-lee/saleads/internal/cond"
	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

// Columns listings may be ordered by.
var allowedSortFields = []string{"price", "created_at"}

// adRepository implements domain.AdRepository using GORM.
type adRepository struct {
	db *gorm.DB
}

// NewAdRepository creates an AdRepository backed by the given GORM database.
func NewAdRepository(db *gorm.DB) domain.AdRepository {
	return &adRepository{db: db}
}

// Create inserts an ad with its entries and images in one transaction.
func (r *adRepository) Create(ctx context.Context, ad *domain.Ad) error {
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Category", "Entries", "Images").Create(ad).Error; err != nil {
			return err
		}
		for i := range ad.Entries {
			ad.Entries[i].AdID = ad.ID
		}
		for i := range ad.Images {
			ad.Images[i].AdID = ad.ID
		}
		if len(ad.Entries) > 0 {
			if err := tx.Create(&ad.Entries).Error; err != nil {
				return err
			}
		}
		if len(ad.Images) > 0 {
			if err := tx.Create(&ad.Images).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return pkg.MapDBError(err)
}

// GetByID retrieves an ad with its author, category, entries and images.
func (r *adRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	var ad domain.Ad
	err := r.db.WithContext(ctx).
		Scopes(preloadAd).
		Where("ads.id = ?", id).
		First(&ad).Error
	if err != nil {
		return nil, pkg.MapDBError(err)
	}
	return &ad, nil
}

// Save updates ad and replaces its entries and images in one transaction.
func (r *adRepository) Save(ctx context.Context, ad *domain.Ad) error {
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Ad{}).Where("id = ?", ad.ID).Updates(map[string]any{
			"category_id": ad.CategoryID,
			"price":       ad.Price,
			"verified":    ad.Verified,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := deleteChildren(tx, ad.ID); err != nil {
			return err
		}

		for i := range ad.Entries {
			ad.Entries[i].ID = 0
			ad.Entries[i].AdID = ad.ID
		}
		for i := range ad.Images {
			ad.Images[i].ID = 0
			ad.Images[i].AdID = ad.ID
			ad.Images[i].Number = i + 1
		}
		if len(ad.Entries) > 0 {
			if err := tx.Create(&ad.Entries).Error; err != nil {
				return err
			}
		}
		if len(ad.Images) > 0 {
			if err := tx.Create(&ad.Images).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return pkg.MapDBError(err)
}

// Delete removes the ad with the given id.
func (r *adRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Ad{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return pkg.MapDBError(err)
}

// deleteChildren removes the entries and images of an ad. SQLite does not
// enforce the cascade unless foreign keys are switched on.
func deleteChildren(tx *gorm.DB, adID uuid.UUID) error {
	if err := tx.Where("ad_id = ?", adID).Delete(&domain.AdEntry{}).Error; err != nil {
		return err
	}
	return tx.Where("ad_id = ?", adID).Delete(&domain.AdImage{}).Error
}

// Count returns the number of ads matching where.
func (r *adRepository) Count(ctx context.Context, where cond.Expr) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Ad{}).
		Scopes(cond.Scope(Schema, where)).
		Count(&total).Error
	if err != nil {
		return 0, pkg.MapDBError(err)
	}
	return total, nil
}

// Find returns the window of ads matching opts.Where. Related rows are
// matched through EXISTS subqueries, so no ad appears twice.
func (r *adRepository) Find(ctx context.Context, opts domain.AdFindOptions) ([]domain.Ad, error) {
	var ads []domain.Ad
	err := r.db.WithContext(ctx).Model(&domain.Ad{}).
		Scopes(
			cond.Scope(Schema, opts.Where),
			pkg.Sort(opts.Order, allowedSortFields),
			pkg.Paginate(opts.Offset, opts.Limit),
			preloadAd,
		).
		Find(&ads).Error
	if err != nil {
		return nil, pkg.MapDBError(err)
	}
	return ads, nil
}

// CountByCategory groups the ads matching where by category.
func (r *adRepository) CountByCategory(ctx context.Context, where cond.Expr) (map[uint]int64, error) {
	var rows []struct {
		CategoryID uint
		AdCount    int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Ad{}).
		Select("ads.category_id AS category_id, COUNT(*) AS ad_count").
		Scopes(cond.Scope(Schema, where)).
		Group("ads.category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, pkg.MapDBError(err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.AdCount
	}
	return counts, nil
}

func preloadAd(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Category").
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("language") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("number") })
}
