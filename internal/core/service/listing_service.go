package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/smartrent/rental-api/internal/api/metrics"
	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

// MaxSearchResults caps every listing search. There is no pagination.
const MaxSearchResults = 100

// maxReportedRowErrors bounds the per-row error list returned by BulkCreate.
const maxReportedRowErrors = 50

type ListingService struct {
	repo   ports.ListingRepository
	dedup  ports.ImportDeduper
	logger zerolog.Logger
	now    func() time.Time
}

// NewListingService returns a ListingService. dedup may be nil, which disables
// idempotent replay of bulk imports.
func NewListingService(repo ports.ListingRepository, dedup ports.ImportDeduper, logger zerolog.Logger) *ListingService {
	return &ListingService{repo: repo, dedup: dedup, logger: logger, now: time.Now}
}

// Search returns at most MaxSearchResults listings matching filter, newest first.
func (s *ListingService) Search(ctx context.Context, filter ports.ListingFilter) ([]*domain.Listing, error) {
	filter.City = strings.TrimSpace(filter.City)
	filter.Query = strings.TrimSpace(filter.Query)

	items, err := s.repo.Find(ctx, filter, MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	if items == nil {
		items = []*domain.Listing{}
	}
	return items, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	return s.repo.FindByID(ctx, id)
}

// Create validates and stores a single listing. Nothing is written when
// validation fails.
func (s *ListingService) Create(ctx context.Context, createdBy string, in ports.ListingInput) (*domain.Listing, error) {
	if err := checkRow(in); err != nil {
		return nil, err
	}
	listing, err := normalizeListing(in, domain.SourceManual, s.now().UTC())
	if err != nil {
		return nil, err
	}
	listing.CreatedBy = createdBy

	if err := s.repo.Create(ctx, listing); err != nil {
		if !errors.Is(err, domain.ErrDuplicateListing) {
			s.logger.Error().Err(err).Msg("failed to create listing")
		}
		return nil, err
	}

	metrics.ListingsCreatedTotal.WithLabelValues(string(listing.Source)).Inc()
	s.logger.Info().
		Str("listing_id", listing.ID).
		Str("city", listing.City).
		Str("created_by", createdBy).
		Msg("listing created")

	return listing, nil
}

// BulkCreate imports a batch of listings.
//
// The batch is rejected as a whole when any row lacks a required field or
// exceeds a length limit. Rows that are complete but violate a constraint are
// skipped and reported; the rest are written in one unordered insert that
// tolerates duplicate keys.
//
// With an idempotency key the key is reserved before anything is written. A
// concurrent import under the same key fails with ErrImportInProgress and a
// finished one is replayed.
func (s *ListingService) BulkCreate(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
	if len(in.Rows) == 0 {
		return nil, domain.NewValidationError("expected a non-empty array of listings")
	}
	for i, row := range in.Rows {
		if err := checkRow(row); err != nil {
			return nil, domain.NewValidationError("item %d: %s", i, err.Error())
		}
	}

	dedupKey := s.dedupKey(in)
	if dedupKey != "" {
		prev, reserved, err := s.dedup.Reserve(ctx, dedupKey)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("import dedup reserve failed, importing anyway")
			dedupKey = ""
		case reserved:
			metrics.ImportDedupTotal.WithLabelValues("miss").Inc()
		case prev != nil:
			metrics.ImportDedupTotal.WithLabelValues("hit").Inc()
			s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Msg("bulk import replayed")
			prev.Replayed = true
			return prev, nil
		default:
			metrics.ImportDedupTotal.WithLabelValues("busy").Inc()
			return nil, domain.ErrImportInProgress
		}
	}

	now := s.now().UTC()
	result := &ports.BulkResult{}
	valid := make([]*domain.Listing, 0, len(in.Rows))
	for i, row := range in.Rows {
		listing, err := normalizeListing(row, domain.SourceCSV, now)
		if err != nil {
			result.Rejected++
			if len(result.Errors) < maxReportedRowErrors {
				result.Errors = append(result.Errors, ports.RowError{Row: i, Error: err.Error()})
			}
			continue
		}
		listing.CreatedBy = in.CreatedBy
		valid = append(valid, listing)
	}

	if len(valid) > 0 {
		res, err := s.repo.InsertMany(ctx, valid)
		if err != nil {
			s.logger.Error().Err(err).Int("rows", len(valid)).Msg("bulk insert failed")
			if dedupKey != "" {
				if rerr := s.dedup.Release(ctx, dedupKey); rerr != nil {
					s.logger.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release import key")
				}
			}
			return nil, fmt.Errorf("bulk insert: %w", err)
		}
		result.Inserted = res.Inserted
		result.Duplicates = res.Duplicates
	}

	metrics.BulkRowsTotal.WithLabelValues("inserted").Add(float64(result.Inserted))
	metrics.BulkRowsTotal.WithLabelValues("duplicate").Add(float64(result.Duplicates))
	metrics.BulkRowsTotal.WithLabelValues("rejected").Add(float64(result.Rejected))

	if dedupKey != "" {
		if err := s.dedup.Remember(ctx, dedupKey, result); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store import result")
		}
	}

	s.logger.Info().
		Int("rows", len(in.Rows)).
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Int("rejected", result.Rejected).
		Str("created_by", in.CreatedBy).
		Msg("bulk import finished")

	return result, nil
}

func (s *ListingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	metrics.ListingsDeletedTotal.Inc()
	s.logger.Info().Str("listing_id", id).Msg("listing deleted")
	return nil
}

// dedupKey scopes the client's idempotency key to the importing account.
func (s *ListingService) dedupKey(in ports.BulkCreateInput) string {
	key := strings.TrimSpace(in.IdempotencyKey)
	if s.dedup == nil || key == "" {
		return ""
	}
	return in.CreatedBy + ":" + key
}

// checkRow runs the checks that reject a whole request.
func checkRow(in ports.ListingInput) error {
	if err := checkRequired(in); err != nil {
		return err
	}
	return checkLengths(in)
}

// checkRequired enforces presence of the four mandatory fields.
func checkRequired(in ports.ListingInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return domain.NewValidationError("title is required")
	case strings.TrimSpace(in.City) == "":
		return domain.NewValidationError("city is required")
	case !isNumber(in.SizeM2):
		return domain.NewValidationError("size_m2 is required and must be a number")
	case !isNumber(in.RentCold):
		return domain.NewValidationError("rent_cold is required and must be a number")
	}
	return nil
}

func checkLengths(in ports.ListingInput) error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"title", in.Title, domain.MaxTitleLen},
		{"city", in.City, domain.MaxCityLen},
		{"district", in.District, domain.MaxDistrictLen},
		{"address", in.Address, domain.MaxAddressLen},
		{"url", in.URL, domain.MaxURLLen},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(strings.TrimSpace(f.value)) > f.max {
			return domain.NewValidationError("%s must be at most %d characters", f.name, f.max)
		}
	}
	return nil
}

// normalizeListing applies defaults and value constraints, producing the
// record that is handed to the store. It assumes checkRow passed.
func normalizeListing(in ports.ListingInput, defaultSource domain.ListingSource, now time.Time) (*domain.Listing, error) {
	l := &domain.Listing{
		Title:     strings.TrimSpace(in.Title),
		City:      strings.TrimSpace(in.City),
		District:  strings.TrimSpace(in.District),
		Address:   strings.TrimSpace(in.Address),
		SizeM2:    *in.SizeM2,
		Rooms:     1,
		RentCold:  *in.RentCold,
		Source:    defaultSource,
		URL:       strings.TrimSpace(in.URL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if l.SizeM2 < domain.MinListingSizeM2 {
		return nil, domain.NewValidationError("size_m2 must be at least %d", domain.MinListingSizeM2)
	}
	if l.RentCold < 0 {
		return nil, domain.NewValidationError("rent_cold must not be negative")
	}

	if in.Rooms != nil {
		r := *in.Rooms
		if !isNumber(in.Rooms) || r < 0 || r > domain.MaxListingRooms || r != math.Trunc(r) {
			return nil, domain.NewValidationError("rooms must be a whole number between 0 and %d", domain.MaxListingRooms)
		}
		l.Rooms = int(r)
	}

	if in.Furnished != nil {
		l.Furnished = *in.Furnished
	}

	if in.RentWarm != nil {
		w := *in.RentWarm
		switch {
		case !isNumber(in.RentWarm):
			return nil, domain.NewValidationError("rent_warm must be a number")
		case w < 0:
			return nil, domain.NewValidationError("rent_warm must not be negative")
		case w < l.RentCold:
			return nil, domain.NewValidationError("rent_warm must not be lower than rent_cold")
		}
		l.RentWarm = &w
	}

	if src := strings.ToLower(strings.TrimSpace(in.Source)); src != "" {
		l.Source = domain.ListingSource(src)
		if !l.Source.Valid() {
			return nil, domain.NewValidationError("source must be one of: manual csv scrape")
		}
	}

	return l, nil
}

func isNumber(f *float64) bool {
	return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0)
}
