package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartrent/rental-api/internal/api/middleware"
	"github.com/smartrent/rental-api/internal/core/domain"
)

// ctxSession returns the session injected by the Auth middleware. A missing
// session means the route was registered without Auth, so the caller is
// treated as unauthenticated.
func ctxSession(c echo.Context) (domain.Session, error) {
	s, ok := middleware.SessionFrom(c)
	if !ok || s.UserID == "" {
		return domain.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return s, nil
}
