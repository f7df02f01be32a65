package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartrent/rental-api/internal/core/ports"
)

// HeaderIdempotentReplay marks a bulk response served from the idempotency store.
const HeaderIdempotentReplay = "Idempotent-Replay"

// ListingHandler handles HTTP requests for listing operations.
type ListingHandler struct {
	service ports.ListingService
}

func NewListingHandler(service ports.ListingService) *ListingHandler {
	return &ListingHandler{service: service}
}

// List handles GET /api/listings.
//
// @Summary      Search listings
// @Description  All filters are optional and combined with AND. At most 100 results, newest first.
// @Tags         listings
// @Produce      json
// @Param        city       query     string   false  "Exact city"
// @Param        minRent    query     number   false  "Minimum cold rent"
// @Param        maxRent    query     number   false  "Maximum cold rent"
// @Param        minSize    query     number   false  "Minimum size in m²"
// @Param        maxSize    query     number   false  "Maximum size in m²"
// @Param        furnished  query     boolean  false  "Furnished"
// @Param        q          query     string   false  "Case-insensitive title substring"
// @Success      200        {array}   domain.Listing
// @Failure      400        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /listings [get]
func (h *ListingHandler) List(c echo.Context) error {
	filter, err := toListingFilter(c.QueryParams())
	if err != nil {
		return err
	}

	items, err := h.service.Search(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /api/listings/:id.
//
// @Summary      Get a listing
// @Tags         listings
// @Produce      json
// @Param        id   path      string  true  "Listing id"
// @Success      200  {object}  domain.Listing
// @Failure      404  {object}  errorResponse
// @Router       /listings/{id} [get]
func (h *ListingHandler) Get(c echo.Context) error {
	l, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// Create handles POST /api/listings.
//
// @Summary      Create a listing
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      listingRequest  true  "Listing"
// @Success      201   {object}  domain.Listing
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /listings [post]
func (h *ListingHandler) Create(c echo.Context) error {
	var req listingRequest
	if err := c.Bind(&req); err != nil {
		return payloadError(err)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	l, err := h.service.Create(c.Request().Context(), session.UserID, toListingInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

// CreateBulk handles POST /api/listings/bulk.
//
// @Summary      Import listings in bulk
// @Description  The batch is rejected when any row lacks title, city, size_m2 or rent_cold or exceeds a length limit. Rows failing other checks are skipped and reported; duplicates are counted.
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string            false  "Replays the stored result of an earlier import with the same key"
// @Param        body             body      []listingRequest  true   "Listings"
// @Success      200              {object}  ports.BulkResult  "Replayed result"
// @Success      201              {object}  ports.BulkResult
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      409              {object}  errorResponse  "Import with the same key still running"
// @Router       /listings/bulk [post]
func (h *ListingHandler) CreateBulk(c echo.Context) error {
	var reqs []listingRequest
	if err := c.Bind(&reqs); err != nil {
		return payloadError(err)
	}
	for i := range reqs {
		if err := c.Validate(&reqs[i]); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("item %d: %s", i, err.Error()))
		}
	}

	return h.importRows(c, toListingInputs(reqs))
}

// Import handles POST /api/listings/import with a CSV file in field "file".
//
// @Summary      Import listings from a CSV file
// @Tags         listings
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string            false  "Replays the stored result of an earlier import with the same key"
// @Param        file             formData  file              true   "CSV with header row"
// @Success      200              {object}  ports.BulkResult  "Replayed result"
// @Success      201              {object}  ports.BulkResult
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      409              {object}  errorResponse  "Import with the same key still running"
// @Router       /listings/import [post]
func (h *ListingHandler) Import(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open file")
	}
	defer f.Close()

	rows, err := parseListingsCSV(f)
	if err != nil {
		return err
	}
	return h.importRows(c, rows)
}

func (h *ListingHandler) importRows(c echo.Context, rows []ports.ListingInput) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	res, err := h.service.BulkCreate(c.Request().Context(), ports.BulkCreateInput{
		Rows:           rows,
		CreatedBy:      session.UserID,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get("Idempotency-Key")),
	})
	if err != nil {
		return err
	}

	if res.Replayed {
		c.Response().Header().Set(HeaderIdempotentReplay, "true")
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

// Delete handles DELETE /api/listings/:id.
//
// @Summary      Delete a listing
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Listing id"
// @Success      200  {object}  deleteListingResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /listings/{id} [delete]
func (h *ListingHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteListingResponse{Message: "Listing deleted successfully", ID: id})
}

// payloadError reports a bind failure with the decoder's reason.
func payloadError(err error) error {
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprintf("%v", he.Message)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "invalid payload: "+msg)
}
