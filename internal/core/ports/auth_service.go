package ports

import (
	"context"

	"github.com/smartrent/rental-api/internal/core/domain"
)

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string // optional, defaults to "user"
}

// AuthResult is a signed token plus the account it was issued for.
type AuthResult struct {
	Token string
	User  *domain.User
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}
