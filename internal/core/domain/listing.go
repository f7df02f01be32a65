package domain

import "time"

// ListingSource records how a listing entered the system.
type ListingSource string

const (
	SourceManual ListingSource = "manual"
	SourceCSV    ListingSource = "csv"
	SourceScrape ListingSource = "scrape"
)

// MinListingSizeM2 is the smallest living area a listing may advertise.
const MinListingSizeM2 = 5

// MaxListingRooms bounds the room count so it always fits an int.
const MaxListingRooms = 1000

// Text field limits, in runes.
const (
	MaxTitleLen    = 200
	MaxCityLen     = 100
	MaxDistrictLen = 100
	MaxAddressLen  = 300
	MaxURLLen      = 2048
)

// Valid reports whether s is one of the known listing sources.
func (s ListingSource) Valid() bool {
	switch s {
	case SourceManual, SourceCSV, SourceScrape:
		return true
	}
	return false
}

// Listing is a rental offer. Listings are created and deleted, never edited.
type Listing struct {
	ID        string        `json:"_id"`
	Title     string        `json:"title"`
	City      string        `json:"city"`
	District  string        `json:"district"`
	Address   string        `json:"address"`
	SizeM2    float64       `json:"size_m2"`
	Rooms     int           `json:"rooms"`
	Furnished bool          `json:"furnished"`
	RentCold  float64       `json:"rent_cold"`
	RentWarm  *float64      `json:"rent_warm,omitempty"`
	Source    ListingSource `json:"source"`
	URL       string        `json:"url"`
	CreatedBy string        `json:"created_by,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
