package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

// listingRequest is one listing as submitted by the form or a parsed CSV row.
// Numbers may arrive as JSON numbers or numeric strings. Unknown columns are ignored.
type listingRequest struct {
	Title     string   `json:"title"     validate:"required,max=200"`
	City      string   `json:"city"      validate:"required,max=100"`
	District  string   `json:"district"  validate:"max=100"`
	Address   string   `json:"address"   validate:"max=300"`
	SizeM2    optFloat `json:"size_m2"   validate:"required" swaggertype:"number"`
	Rooms     optFloat `json:"rooms"     swaggertype:"integer"`
	Furnished optBool  `json:"furnished" swaggertype:"boolean"`
	RentCold  optFloat `json:"rent_cold" validate:"required" swaggertype:"number"`
	RentWarm  optFloat `json:"rent_warm" swaggertype:"number"`
	Source    string   `json:"source"    enums:"manual,csv,scrape"`
	URL       string   `json:"url"       validate:"max=2048"`
}

type deleteListingResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

