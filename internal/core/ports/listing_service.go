package ports

import (
	"context"

	"github.com/smartrent/rental-api/internal/core/domain"
)

// ListingInput is a single listing submission. Pointer fields are optional;
// title, city, size_m2 and rent_cold are required.
type ListingInput struct {
	Title     string
	City      string
	District  string
	Address   string
	SizeM2    *float64
	Rooms     *float64
	Furnished *bool
	RentCold  *float64
	RentWarm  *float64
	Source    string
	URL       string
}

// BulkCreateInput is a batch submission, typically one parsed CSV file.
type BulkCreateInput struct {
	Rows           []ListingInput
	CreatedBy      string
	IdempotencyKey string // optional; replays the stored result when seen before
}

// RowError explains why a single bulk row was not inserted.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BulkResult summarises a bulk import.
type BulkResult struct {
	Inserted   int        `json:"inserted"`
	Duplicates int        `json:"duplicates"`
	Rejected   int        `json:"rejected"`
	Errors     []RowError `json:"errors,omitempty"`
	// Replayed is true when the result came from the idempotency store.
	Replayed bool `json:"-"`
}

// ImportDeduper remembers bulk results by idempotency key.
type ImportDeduper interface {
	// Reserve atomically claims key for a new import. When the key is already
	// taken, reserved is false and prev holds the stored result, or nil while
	// the import that claimed it is still running.
	Reserve(ctx context.Context, key string) (prev *BulkResult, reserved bool, err error)
	// Remember stores the outcome of the import that reserved key.
	Remember(ctx context.Context, key string, result *BulkResult) error
	// Release drops a reservation so the import can be retried.
	Release(ctx context.Context, key string) error
}

// ListingService defines the query and ingest use cases for listings.
type ListingService interface {
	Search(ctx context.Context, filter ListingFilter) ([]*domain.Listing, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Create(ctx context.Context, createdBy string, in ListingInput) (*domain.Listing, error)
	BulkCreate(ctx context.Context, in BulkCreateInput) (*BulkResult, error)
	Delete(ctx context.Context, id string) error
}
