package model

import "time"

// Comment is a review on an item. Root comments have a nil ParentID;
// replies point at a root comment of the same item.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID    int       `gorm:"not null;index" json:"item_id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	ParentID  *int64    `gorm:"index" json:"parent_id,omitempty"`
	Rating    int       `gorm:"not null;default:0" json:"rating"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Item    *Item     `gorm:"foreignKey:ItemID;references:ID" json:"-"`
	User    *User     `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Parent  *Comment  `gorm:"foreignKey:ParentID;references:ID" json:"-"`
	Replies []Comment `gorm:"foreignKey:ParentID;references:ID" json:"replies,omitempty"`

	LikeCount int64 `gorm:"-" json:"like_count"` // Virtual field, calculated
}

// IsReply reports whether the comment is a child of another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}
