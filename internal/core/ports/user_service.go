package ports

import (
	"context"
	"io"

	"github.com/smartrent/rental-api/internal/core/domain"
)

// DocumentFile is one uploaded verification document.
type DocumentFile struct {
	Filename    string
	ContentType string // as declared by the client
	Content     io.Reader
}

// UploadResult lists the stored paths of an upload.
type UploadResult struct {
	Files []string
}

// DocumentStore persists uploaded files.
type DocumentStore interface {
	// Save writes r under a collision-free name derived from originalName
	// and returns the stored path.
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}

// UserService exposes account operations outside of authentication.
type UserService interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UploadDocuments(ctx context.Context, userID string, files []DocumentFile) (*UploadResult, error)
}
