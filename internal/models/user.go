package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the marketplace side a user acts on.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleAdvertiser Role = "advertiser"
	RoleAdmin      Role = "admin"
)

// User represents a marketplace account.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      Role           `gorm:"type:varchar(20);not null;default:'publisher'" json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user moderates listings.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
