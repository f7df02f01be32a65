package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/smartrent/rental-api/internal/api/middleware"
	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

type stubListingService struct {
	searchFn func(ctx context.Context, f ports.ListingFilter) ([]*domain.Listing, error)
	getFn    func(ctx context.Context, id string) (*domain.Listing, error)
	createFn func(ctx context.Context, createdBy string, in ports.ListingInput) (*domain.Listing, error)
	bulkFn   func(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s *stubListingService) Search(ctx context.Context, f ports.ListingFilter) ([]*domain.Listing, error) {
	return s.searchFn(ctx, f)
}

func (s *stubListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	return s.getFn(ctx, id)
}

func (s *stubListingService) Create(ctx context.Context, createdBy string, in ports.ListingInput) (*domain.Listing, error) {
	return s.createFn(ctx, createdBy, in)
}

func (s *stubListingService) BulkCreate(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
	return s.bulkFn(ctx, in)
}

func (s *stubListingService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func newListingEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func asLandlord(c echo.Context) {
	c.Set(middleware.SessionKey, domain.Session{UserID: "landlord-1", Role: domain.RoleLandlord})
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestListingHandler_List_ParsesFilters(t *testing.T) {
	e := newListingEcho()
	var got ports.ListingFilter
	stub := &stubListingService{
		searchFn: func(ctx context.Context, f ports.ListingFilter) ([]*domain.Listing, error) {
			got = f
			return []*domain.Listing{}, nil
		},
	}
	h := NewListingHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/listings?city=Marburg&minRent=200&maxRent=400,5&minSize=&furnished=true&q=studio", nil)
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected 200 with empty array, got %d %s", rec.Code, rec.Body.String())
	}
	if got.City != "Marburg" || got.Query != "studio" {
		t.Fatalf("unexpected text filters: %+v", got)
	}
	if got.MinRent == nil || *got.MinRent != 200 || got.MaxRent == nil || *got.MaxRent != 400.5 {
		t.Fatalf("unexpected rent bounds: %v %v", got.MinRent, got.MaxRent)
	}
	if got.MinSize != nil || got.MaxSize != nil {
		t.Fatalf("empty size params must impose no constraint")
	}
	if got.Furnished == nil || !*got.Furnished {
		t.Fatalf("expected furnished=true")
	}
}

func TestListingHandler_List_RejectsBadParams(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{
		searchFn: func(ctx context.Context, f ports.ListingFilter) ([]*domain.Listing, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	})

	for _, query := range []string{"minRent=cheap", "maxSize=NaN", "furnished=maybe"} {
		req := httptest.NewRequest(http.MethodGet, "/api/listings?"+query, nil)
		err := h.List(e.NewContext(req, httptest.NewRecorder()))
		if code := httpCode(t, err); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, code)
		}
	}
}

func TestListingHandler_Get_NotFound(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{
		getFn: func(ctx context.Context, id string) (*domain.Listing, error) {
			return nil, domain.ErrListingNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.Get(c); !errors.Is(err, domain.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestListingHandler_Create_Success(t *testing.T) {
	e := newListingEcho()
	stub := &stubListingService{
		createFn: func(ctx context.Context, createdBy string, in ports.ListingInput) (*domain.Listing, error) {
			if createdBy != "landlord-1" {
				t.Fatalf("unexpected creator %q", createdBy)
			}
			if in.Title != "Studio" || in.City != "Marburg" || *in.SizeM2 != 22 || *in.RentCold != 350 {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Rooms != nil || in.RentWarm != nil || in.Furnished == nil || *in.Furnished {
				t.Fatalf("unexpected optional fields: %+v", in)
			}
			return &domain.Listing{ID: "l1", Title: in.Title, City: in.City, SizeM2: 22, RentCold: 350}, nil
		},
	}
	h := NewListingHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/api/listings",
		`{"title":"Studio","city":"Marburg","size_m2":"22","rent_cold":350,"rooms":"","furnished":"no","extra":"ignored"}`)
	asLandlord(c)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var l domain.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &l); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if l.ID != "l1" {
		t.Fatalf("expected generated id in body, got %+v", l)
	}
}

func TestListingHandler_Create_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"missing size":       {`{"title":"Studio","city":"Marburg","rent_cold":350}`, "size_m2 is required"},
		"null rent":          {`{"title":"Studio","city":"Marburg","size_m2":22,"rent_cold":null}`, "rent_cold is required"},
		"missing title":      {`{"city":"Marburg","size_m2":22,"rent_cold":350}`, "title is required"},
		"non-numeric string": {`{"title":"Studio","city":"Marburg","size_m2":"big","rent_cold":350}`, "invalid payload"},
		"boolean as number":  {`{"title":"Studio","city":"Marburg","size_m2":true,"rent_cold":350}`, "invalid payload"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := newListingEcho()
			h := NewListingHandler(&stubListingService{
				createFn: func(ctx context.Context, createdBy string, in ports.ListingInput) (*domain.Listing, error) {
					t.Fatalf("service must not be called")
					return nil, nil
				},
			})

			c, _ := newJSONContext(e, http.MethodPost, "/api/listings", tc.body)
			asLandlord(c)
			err := h.Create(c)

			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
			if msg, _ := he.Message.(string); !strings.Contains(msg, tc.want) {
				t.Fatalf("expected message containing %q, got %q", tc.want, msg)
			}
		})
	}
}

func TestListingHandler_Create_MissingSession(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{})

	c, _ := newJSONContext(e, http.MethodPost, "/api/listings", `{"title":"Studio","city":"Marburg","size_m2":22,"rent_cold":350}`)
	if code := httpCode(t, h.Create(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

// ---------------------------------------------------------------------------
// Bulk / Import
// ---------------------------------------------------------------------------

func TestListingHandler_CreateBulk(t *testing.T) {
	e := newListingEcho()
	var got ports.BulkCreateInput
	stub := &stubListingService{
		bulkFn: func(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
			got = in
			return &ports.BulkResult{Inserted: 1, Duplicates: 1}, nil
		},
	}
	h := NewListingHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/api/listings/bulk",
		`[{"title":"A","city":"Marburg","size_m2":"30","rent_cold":"400"},{"title":"B","city":"Gießen","size_m2":40,"rent_cold":500,"url":"https://x/1"}]`)
	c.Request().Header.Set("Idempotency-Key", " batch-1 ")
	asLandlord(c)
	if err := h.CreateBulk(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get(HeaderIdempotentReplay) != "" {
		t.Fatalf("fresh import must not carry the replay header")
	}
	if len(got.Rows) != 2 || got.CreatedBy != "landlord-1" || got.IdempotencyKey != "batch-1" {
		t.Fatalf("unexpected bulk input: %+v", got)
	}
	if *got.Rows[0].SizeM2 != 30 || got.Rows[1].URL != "https://x/1" {
		t.Fatalf("unexpected rows: %+v", got.Rows)
	}

	var res ports.BulkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if res.Inserted != 1 || res.Duplicates != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestListingHandler_CreateBulk_Replay(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{
		bulkFn: func(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
			return &ports.BulkResult{Inserted: 3, Replayed: true}, nil
		},
	})

	c, rec := newJSONContext(e, http.MethodPost, "/api/listings/bulk", `[{"title":"A","city":"Marburg","size_m2":30,"rent_cold":400}]`)
	asLandlord(c)
	if err := h.CreateBulk(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get(HeaderIdempotentReplay) != "true" {
		t.Fatalf("expected 200 replay, got %d %q", rec.Code, rec.Header().Get(HeaderIdempotentReplay))
	}
}

func TestListingHandler_CreateBulk_NotAnArray(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{})

	c, _ := newJSONContext(e, http.MethodPost, "/api/listings/bulk", `{"title":"A"}`)
	asLandlord(c)
	if code := httpCode(t, h.CreateBulk(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestListingHandler_CreateBulk_RowValidation(t *testing.T) {
	long := strings.Repeat("x", 5000)
	cases := map[string]struct {
		body string
		want string
	}{
		"overlong title": {`[{"title":"A","city":"Marburg","size_m2":30,"rent_cold":400},{"title":"` + long + `","city":"Marburg","size_m2":30,"rent_cold":400}]`, "item 1: title must be at most 200"},
		"overlong url":   {`[{"title":"A","city":"Marburg","size_m2":30,"rent_cold":400,"url":"https://` + long + `"}]`, "item 0: url must be at most 2048"},
		"missing city":   {`[{"title":"A","size_m2":30,"rent_cold":400}]`, "item 0: city is required"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := newListingEcho()
			h := NewListingHandler(&stubListingService{
				bulkFn: func(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
					t.Fatalf("service must not be called")
					return nil, nil
				},
			})

			c, _ := newJSONContext(e, http.MethodPost, "/api/listings/bulk", tc.body)
			asLandlord(c)
			err := h.CreateBulk(c)

			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
			if msg, _ := he.Message.(string); !strings.Contains(msg, tc.want) {
				t.Fatalf("expected message containing %q, got %q", tc.want, msg)
			}
		})
	}
}

func TestListingHandler_CreateBulk_ReportsDecodeError(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{})

	c, _ := newJSONContext(e, http.MethodPost, "/api/listings/bulk", `[{"title":"A","city":"Marburg","size_m2":"abc","rent_cold":400}]`)
	asLandlord(c)
	err := h.CreateBulk(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	msg, _ := he.Message.(string)
	if !strings.HasPrefix(msg, "invalid payload: ") || !strings.Contains(msg, `"abc" is not a number`) {
		t.Fatalf("expected decoder reason in message, got %q", msg)
	}
	if strings.Contains(msg, "expected an array") {
		t.Fatalf("an array was sent, got %q", msg)
	}
}

func TestListingHandler_CreateBulk_ServiceValidation(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{
		bulkFn: func(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
			return nil, domain.NewValidationError("no listings provided")
		},
	})

	c, _ := newJSONContext(e, http.MethodPost, "/api/listings/bulk", `[]`)
	asLandlord(c)
	if err := h.CreateBulk(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func newCSVUpload(t *testing.T, field, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "listings.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/listings/import", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestListingHandler_Import(t *testing.T) {
	e := newListingEcho()
	var got ports.BulkCreateInput
	h := NewListingHandler(&stubListingService{
		bulkFn: func(ctx context.Context, in ports.BulkCreateInput) (*ports.BulkResult, error) {
			got = in
			return &ports.BulkResult{Inserted: len(in.Rows)}, nil
		},
	})

	csv := "title,city,size_m2,rent_cold,furnished\nStudio,Marburg,22,350,yes\nLoft,Kassel,\"48,5\",610,\n"
	rec := httptest.NewRecorder()
	c := e.NewContext(newCSVUpload(t, "file", csv), rec)
	asLandlord(c)
	if err := h.Import(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
	if *got.Rows[1].SizeM2 != 48.5 || got.Rows[1].Furnished != nil || !*got.Rows[0].Furnished {
		t.Fatalf("unexpected rows: %+v", got.Rows)
	}
}

func TestListingHandler_Import_MissingFile(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{})

	c := e.NewContext(newCSVUpload(t, "other", "title\n"), httptest.NewRecorder())
	asLandlord(c)
	if code := httpCode(t, h.Import(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestListingHandler_Delete(t *testing.T) {
	e := newListingEcho()
	h := NewListingHandler(&stubListingService{
		deleteFn: func(ctx context.Context, id string) error {
			if id != "l1" {
				return domain.ErrListingNotFound
			}
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("l1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp deleteListingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || resp.ID != "l1" || resp.Message != "Listing deleted successfully" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}
}
