package models

import "time"

// RoleUser is assigned to users created without an explicit role.
const RoleUser = "user"

// User is a stored account. PasswordHash never leaves the service boundary.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserUpdate carries the optional fields of a partial user update.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}
