package ports

import (
	"context"

	"github.com/smartrent/rental-api/internal/core/domain"
)

// UserRepository defines persistence for accounts.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// AppendDocuments adds paths to the user's documents and clears the verified flag.
	AppendDocuments(ctx context.Context, id string, paths []string) error
}
