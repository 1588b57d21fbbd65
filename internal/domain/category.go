package domain

import "context"

// Category is a node of the ad category tree. Only ultimate categories accept
// ads; the others only group their children.
type Category struct {
	BaseModel
	Name     string `gorm:"size:200;not null" json:"name"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
	Ultimate bool   `gorm:"not null;default:false" json:"ultimate"`
}

// CategoryRepository defines the data access interface for categories.
type CategoryRepository interface {
	// ListAll returns every category in a single read, ordered by id.
	ListAll(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id uint) (*Category, error)
	Children(ctx context.Context, parentID uint) ([]Category, error)
	// SiblingNameTaken reports whether a child of parentID already uses name,
	// compared case-insensitively. A nil parentID means the roots.
	SiblingNameTaken(ctx context.Context, parentID *uint, name string) (bool, error)
	Create(ctx context.Context, category *Category) error
}
