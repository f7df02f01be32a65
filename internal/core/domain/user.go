package domain

import "time"

const (
	RoleUser     = "user"
	RoleLandlord = "landlord"
)

// ValidRole reports whether role is an account type the API issues tokens for.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleLandlord
}

// User models an account. PasswordHash is set once at signup and never leaves the service layer.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Documents    []string  `json:"documents"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
