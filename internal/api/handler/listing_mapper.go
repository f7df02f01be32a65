package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartrent/rental-api/internal/core/ports"
)

// --- Request → Service input ---

func toListingInput(req listingRequest) ports.ListingInput {
	return ports.ListingInput{
		Title:     req.Title,
		City:      req.City,
		District:  req.District,
		Address:   req.Address,
		SizeM2:    req.SizeM2.ptr(),
		Rooms:     req.Rooms.ptr(),
		Furnished: req.Furnished.ptr(),
		RentCold:  req.RentCold.ptr(),
		RentWarm:  req.RentWarm.ptr(),
		Source:    req.Source,
		URL:       req.URL,
	}
}

func toListingInputs(reqs []listingRequest) []ports.ListingInput {
	out := make([]ports.ListingInput, len(reqs))
	for i, r := range reqs {
		out[i] = toListingInput(r)
	}
	return out
}

// toListingFilter reads the search parameters. Empty parameters impose no
// constraint; values that do not parse are a 400.
func toListingFilter(q url.Values) (ports.ListingFilter, error) {
	f := ports.ListingFilter{
		City:  strings.TrimSpace(q.Get("city")),
		Query: strings.TrimSpace(q.Get("q")),
	}

	numbers := []struct {
		name string
		dst  **float64
	}{
		{"minRent", &f.MinRent},
		{"maxRent", &f.MaxRent},
		{"minSize", &f.MinSize},
		{"maxSize", &f.MaxSize},
	}
	for _, n := range numbers {
		raw := strings.TrimSpace(q.Get(n.name))
		if raw == "" {
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			return ports.ListingFilter{}, echo.NewHTTPError(http.StatusBadRequest, n.name+" must be a number")
		}
		*n.dst = &v
	}

	if raw := strings.TrimSpace(q.Get("furnished")); raw != "" {
		b, err := parseBool(raw)
		if err != nil {
			return ports.ListingFilter{}, echo.NewHTTPError(http.StatusBadRequest, "furnished must be true or false")
		}
		f.Furnished = &b
	}

	return f, nil
}
