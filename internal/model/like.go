package model

import "time"

// Like is one user's endorsement of a comment; (user, comment) is unique.
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_like_user_comment" json:"user_id"`
	CommentID int64     `gorm:"not null;uniqueIndex:idx_like_user_comment;index" json:"comment_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Comment *Comment `gorm:"foreignKey:CommentID;references:ID" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

// TableName specifies the table name
func (Like) TableName() string {
	return "likes"
}
