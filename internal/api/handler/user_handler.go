package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

// UserHandler serves account endpoints outside of signup and login.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type uploadResponse struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// Me handles GET /api/users/me.
//
// @Summary      Current account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	user, err := h.service.Profile(c.Request().Context(), session.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UploadDocuments handles POST /api/users/upload-documents.
//
// @Summary      Upload verification documents
// @Description  1 to 5 PDF, JPEG or PNG files in field "documents". Resets the account to unverified.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        documents  formData  file  true  "Documents"
// @Success      200        {object}  uploadResponse
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Failure      413        {object}  errorResponse
// @Router       /users/upload-documents [post]
func (h *UserHandler) UploadDocuments(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	if !session.IsLandlord() {
		return domain.ErrForbidden
	}

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return echo.ErrStatusRequestEntityTooLarge
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form with field \"documents\"")
	}
	defer form.RemoveAll()

	headers := form.File["documents"]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one document is required")
	}

	files := make([]ports.DocumentFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "cannot open "+fh.Filename)
		}
		opened = append(opened, f)
		files = append(files, ports.DocumentFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Content:     f,
		})
	}

	res, err := h.service.UploadDocuments(c.Request().Context(), session.UserID, files)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, uploadResponse{Message: "Documents uploaded", Files: res.Files})
}
