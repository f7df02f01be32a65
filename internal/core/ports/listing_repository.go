package ports

import (
	"context"

	"github.com/smartrent/rental-api/internal/core/domain"
)

// ListingFilter carries the optional search constraints for listings.
// A nil field imposes no constraint; all set fields are combined with AND.
type ListingFilter struct {
	City      string   // exact match
	MinRent   *float64 // rent_cold >= MinRent
	MaxRent   *float64 // rent_cold <= MaxRent
	MinSize   *float64 // size_m2 >= MinSize
	MaxSize   *float64 // size_m2 <= MaxSize
	Furnished *bool
	Query     string // case-insensitive substring of title
}

// InsertManyResult reports the outcome of an unordered batch insert.
type InsertManyResult struct {
	Inserted   int
	Duplicates int
}

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	Create(ctx context.Context, l *domain.Listing) error
	// InsertMany writes all listings in one unordered batch. Rows rejected by a
	// unique index are counted in Duplicates and do not fail the call.
	InsertMany(ctx context.Context, listings []*domain.Listing) (InsertManyResult, error)
	// Find returns up to limit listings matching filter, newest first.
	Find(ctx context.Context, filter ListingFilter, limit int) ([]*domain.Listing, error)
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	Delete(ctx context.Context, id string) error
}
