package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

// maxCSVRows bounds a single import file.
const maxCSVRows = 5000

// parseListingsCSV reads a header row followed by one listing per line.
// Unknown columns are ignored and empty cells count as absent. A cell that
// cannot be read as its column's type rejects the whole file.
func parseListingsCSV(r io.Reader) ([]ports.ListingInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("csv file is empty")
	}
	if err != nil {
		return nil, domain.NewValidationError("invalid csv: %v", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup && name != "" {
			cols[name] = i
		}
	}
	for _, required := range []string{"title", "city", "size_m2", "rent_cold"} {
		if _, ok := cols[required]; !ok {
			return nil, domain.NewValidationError("csv header is missing column %q", required)
		}
	}

	var rows []ports.ListingInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewValidationError("invalid csv: %v", err)
		}
		if blankRecord(rec) {
			continue
		}
		if len(rows) == maxCSVRows {
			return nil, domain.NewValidationError("csv file exceeds %d rows", maxCSVRows)
		}

		row, err := csvRow(cols, rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, domain.NewValidationError("line %d: %v", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func csvRow(cols map[string]int, rec []string) (ports.ListingInput, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(name string) (*float64, error) {
		raw := cell(name)
		if raw == "" {
			return nil, nil
		}
		v, err := parseNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return &v, nil
	}

	in := ports.ListingInput{
		Title:    cell("title"),
		City:     cell("city"),
		District: cell("district"),
		Address:  cell("address"),
		Source:   cell("source"),
		URL:      cell("url"),
	}

	var err error
	if in.SizeM2, err = number("size_m2"); err != nil {
		return in, err
	}
	if in.Rooms, err = number("rooms"); err != nil {
		return in, err
	}
	if in.RentCold, err = number("rent_cold"); err != nil {
		return in, err
	}
	if in.RentWarm, err = number("rent_warm"); err != nil {
		return in, err
	}
	if raw := cell("furnished"); raw != "" {
		b, err := parseBool(raw)
		if err != nil {
			return in, fmt.Errorf("furnished: %w", err)
		}
		in.Furnished = &b
	}

	return in, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
