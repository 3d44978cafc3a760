package models

import "gorm.io/gorm"

// Roles a user can hold. A manager is a user with an extra
// department payload, not a separate entity.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
	RoleManager  = "manager"
)

// User represents an account that can log in to the store.
type User struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Email      string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Name       string `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	Password   string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Role       string `json:"role" gorm:"type:varchar(20);default:customer" validate:"omitempty,oneof=admin customer manager"`
	Department string `json:"department,omitempty" gorm:"type:varchar(100)"` // Only set when Role is manager
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// IsAdmin reports whether the user may access the admin section.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
