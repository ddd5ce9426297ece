package model

import "time"

// Category is the catalog section an item is listed under.
type Category string

const (
	CategoryTop       Category = "TOP"
	CategoryBottom    Category = "BOTTOM"
	CategoryOuter     Category = "OUTER"
	CategoryShoes     Category = "SHOES"
	CategoryBag       Category = "BAG"
	CategoryAccessory Category = "ACCESSORY"
	CategoryEtc       Category = "ETC"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryOuter, CategoryShoes, CategoryBag, CategoryAccessory, CategoryEtc:
		return true
	}
	return false
}

// Item is a catalog product. The average rating is derived from comments
// at read time and is not a column.
type Item struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"type:text" json:"image_url"`
	Brand       string    `gorm:"type:varchar(100)" json:"brand"`
	Category    Category  `gorm:"type:varchar(20);index" json:"category"`
	Stock       int       `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Sale        int       `gorm:"not null;default:0" json:"sale"`
	OriginPrice int       `gorm:"not null;default:0;check:origin_price >= 0" json:"origin_price"`
	Price       int       `gorm:"not null;default:0" json:"price"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Item) TableName() string {
	return "items"
}
