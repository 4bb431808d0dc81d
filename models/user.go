package models

// Role represents user role types
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a user in the system
type User struct {
	Base
	Email    string  `json:"email" gorm:"uniqueIndex;not null"`
	Username *string `json:"username" gorm:"default:null"`
	Name     *string `json:"name" gorm:"default:null"`
	Role     Role    `json:"role" gorm:"type:varchar(10);default:'user'"`
}
