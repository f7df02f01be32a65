package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/smartrent/rental-api/internal/core/domain"
)

// SessionKey is the echo.Context key under which Auth stores the caller's domain.Session.
const SessionKey = "session"

// Auth validates the bearer token and attaches the caller's session to both
// the echo context and the request context. Every failure is a 401.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			role, _ := claims["role"].(string)
			if sub == "" || !domain.ValidRole(role) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			session := domain.Session{UserID: sub, Role: role}
			c.Set(SessionKey, session)
			c.SetRequest(c.Request().WithContext(domain.WithSession(c.Request().Context(), session)))

			return next(c)
		}
	}
}

// SessionFrom returns the session stored by Auth.
func SessionFrom(c echo.Context) (domain.Session, bool) {
	s, ok := c.Get(SessionKey).(domain.Session)
	return s, ok
}
