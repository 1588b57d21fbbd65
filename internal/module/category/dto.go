package category

// CreateCategoryRequest represents the input for creating a category.
type CreateCategoryRequest struct {
	Name     string `json:"name" form:"name" binding:"required,max=200"`
	ParentID *uint  `json:"parent_id" form:"parent_id" binding:"omitempty,min=1"`
	Ultimate bool   `json:"ultimate" form:"ultimate"`
}

// TreeNode is the JSON view of a category and its children.
type TreeNode struct {
	ID       uint       `json:"id"`
	Name     string     `json:"name"`
	FullName string     `json:"full_name"`
	ParentID *uint      `json:"parent_id"`
	Ultimate bool       `json:"ultimate"`
	URL      string     `json:"url"`
	AdCount  int64      `json:"ad_count"`
	Children []TreeNode `json:"children"`
}
