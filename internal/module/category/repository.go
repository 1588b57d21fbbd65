package category

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

// categoryRepository implements domain.CategoryRepository using GORM.
type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a CategoryRepository backed by the given GORM database.
func NewCategoryRepository(db *gorm.DB) domain.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := r.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, pkg.MapDBError(err)
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*domain.Category, error) {
	var category domain.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, pkg.MapDBError(err)
	}
	return &category, nil
}

func (r *categoryRepository) Children(ctx context.Context, parentID uint) ([]domain.Category, error) {
	var children []domain.Category
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("id").Find(&children).Error; err != nil {
		return nil, pkg.MapDBError(err)
	}
	return children, nil
}

func (r *categoryRepository) SiblingNameTaken(ctx context.Context, parentID *uint, name string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, pkg.MapDBError(err)
	}
	return count > 0, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return pkg.MapDBError(r.db.WithContext(ctx).Create(category).Error)
}
