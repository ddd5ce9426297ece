package model

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Username     string     `gorm:"type:varchar(100)" json:"username"`
	PhoneNumber  string     `gorm:"type:varchar(20)" json:"phone_number,omitempty"` // 010-1234-5678
	Role         string     `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	Birthday     *time.Time `gorm:"type:date" json:"birthday,omitempty"`
	EnrollDate   time.Time  `gorm:"not null;autoCreateTime" json:"enroll_date"`
	DeleteDate   *time.Time `json:"delete_date,omitempty"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
