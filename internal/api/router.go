package api

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/smartrent/rental-api/docs"
	"github.com/smartrent/rental-api/internal/api/handler"
	"github.com/smartrent/rental-api/internal/api/middleware"
	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

const defaultMaxUploadBytes = 25 << 20

// Options configures the HTTP layer.
type Options struct {
	JWTSecret      string
	AllowedOrigin  string
	MaxUploadBytes int64
	Logger         zerolog.Logger
	// Registerer and Gatherer enable HTTP metrics and GET /metrics when set.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Dependencies are the services the routes delegate to.
type Dependencies struct {
	Auth     ports.AuthService
	Listings ports.ListingService
	Users    ports.UserService
	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]handler.DependencyCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts Options, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(opts.Logger))
	if opts.AllowedOrigin != "" {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     []string{opts.AllowedOrigin},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
			ExposeHeaders:    []string{handler.HeaderIdempotentReplay},
			AllowCredentials: true,
		}))
	}
	e.Use(echomiddleware.BodyLimit(strconv.FormatInt(maxUpload, 10)))
	if opts.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "rental",
			Subsystem:  "http",
			Registerer: opts.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: opts.Gatherer,
		}))
	}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	listingHandler := handler.NewListingHandler(deps.Listings)
	userHandler := handler.NewUserHandler(deps.Users)
	healthHandler := handler.NewHealthHandler(deps.Checks)

	authMiddleware := middleware.Auth(opts.JWTSecret)
	landlordOnly := middleware.RBAC(domain.RoleLandlord)

	api := e.Group("/api")

	// --- Health probes (no auth required) ---
	api.GET("/health", healthHandler.Liveness)
	api.GET("/health/ready", healthHandler.Readiness)

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)

	// --- Listing routes ---
	listings := api.Group("/listings")
	listings.GET("", listingHandler.List)
	listings.GET("/:id", listingHandler.Get)
	listings.POST("", listingHandler.Create, authMiddleware, landlordOnly)
	listings.POST("/bulk", listingHandler.CreateBulk, authMiddleware, landlordOnly)
	listings.POST("/import", listingHandler.Import, authMiddleware, landlordOnly)
	listings.DELETE("/:id", listingHandler.Delete, authMiddleware, landlordOnly)

	// --- User routes ---
	users := api.Group("/users", authMiddleware)
	users.GET("/me", userHandler.Me)
	users.POST("/upload-documents", userHandler.UploadDocuments)

	return e
}
