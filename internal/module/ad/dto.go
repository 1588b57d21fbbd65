package ad

// EntryRequest is the text of an ad in one language.
type EntryRequest struct {
	Language    string `json:"language" form:"language" binding:"required,max=10"`
	Name        string `json:"name" form:"name" binding:"required,max=200"`
	Description string `json:"description" form:"description" binding:"max=5000"`
}

// CreateAdRequest represents the input for publishing an ad. Price is a
// decimal string such as "49.90".
type CreateAdRequest struct {
	CategoryID uint           `json:"category_id" form:"category_id" binding:"required,min=1"`
	Price      string         `json:"price" form:"price" binding:"required,max=32"`
	Entries    []EntryRequest `json:"entries" binding:"required,min=1,dive"`
	Images     []string       `json:"images" binding:"max=7,dive,required,max=255"`
}

// UpdateAdRequest changes the price and category of an ad.
type UpdateAdRequest struct {
	CategoryID uint   `json:"category_id" form:"category_id" binding:"required,min=1"`
	Price      string `json:"price" form:"price" binding:"required,max=32"`
}

// EntryTextRequest replaces the text of an existing entry. The language
// comes from the URL.
type EntryTextRequest struct {
	Name        string `json:"name" form:"name" binding:"required,max=200"`
	Description string `json:"description" form:"description" binding:"max=5000"`
}

// ImageRequest adds an image by its stored path.
type ImageRequest struct {
	Path string `json:"path" form:"path" binding:"required,max=255"`
}

// ReorderImagesRequest lists the current image numbers in their new order.
type ReorderImagesRequest struct {
	Order []int `json:"order" binding:"required,min=1,max=7"`
}

// MoveImageRequest names the position an image moves to.
type MoveImageRequest struct {
	To int `json:"to" form:"to" binding:"required,min=1"`
}
