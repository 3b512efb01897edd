package models

import (
	"time"
)

// Roles assigned by the identity provider and mirrored locally.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is provisioned on first successful sign-in. Sub is the identity
// provider's subject claim. Email is immutable after creation; Name may be
// changed by the user or an admin. Users are never hard-deleted.
type User struct {
	Sub       string    `gorm:"primaryKey;size:255" json:"sub"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Role      string    `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
