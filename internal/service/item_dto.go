package service

import (
	"fmt"
	"strings"
	"time"

	"shopback/internal/model"
)

// ItemForm carries the editable item fields of create and update requests.
type ItemForm struct {
	Name        string         `form:"name" json:"name" binding:"required,max=255"`
	Description string         `form:"description" json:"description"`
	Brand       string         `form:"brand" json:"brand" binding:"max=100"`
	Category    model.Category `form:"category" json:"category" binding:"required"`
	Stock       int            `form:"stock" json:"stock" binding:"gte=0"`
	Sale        int            `form:"sale" json:"sale" binding:"gte=0"`
	OriginPrice int            `form:"origin_price" json:"origin_price" binding:"gte=0"`
	Price       int            `form:"price" json:"price" binding:"gte=0"`
}

// Validate checks the invariants the store relies on.
func (f ItemForm) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	case !f.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidItem, f.Category)
	case f.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidItem)
	case f.Sale < 0:
		return fmt.Errorf("%w: sale must not be negative", ErrInvalidItem)
	case f.OriginPrice < 0 || f.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	return nil
}

// ItemView is the read-side shape of an item. AverageRating is nil when no
// rating exists yet.
type ItemView struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ImageURL      string         `json:"image_url"`
	Brand         string         `json:"brand"`
	Category      model.Category `json:"category"`
	Stock         int            `json:"stock"`
	Sale          int            `json:"sale"`
	OriginPrice   int            `json:"origin_price"`
	Price         int            `json:"price"`
	AverageRating *int           `json:"average_rating"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func itemFromForm(f ItemForm) *model.Item {
	return &model.Item{
		Name:        strings.TrimSpace(f.Name),
		Description: f.Description,
		Brand:       f.Brand,
		Category:    f.Category,
		Stock:       f.Stock,
		Sale:        f.Sale,
		OriginPrice: f.OriginPrice,
		Price:       f.Price,
	}
}

func toItemView(item *model.Item, averageRating *int) *ItemView {
	return &ItemView{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		ImageURL:      item.ImageURL,
		Brand:         item.Brand,
		Category:      item.Category,
		Stock:         item.Stock,
		Sale:          item.Sale,
		OriginPrice:   item.OriginPrice,
		Price:         item.Price,
		AverageRating: averageRating,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
