package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/validation"
)

// RouterConfig wires the handlers into an echo instance.
type RouterConfig struct {
	Logger      *zap.Logger
	Validator   *validation.Validator
	Auth        TokenValidator
	FrontendURL string

	AuthHandler    *AuthHandler
	JobHandler     *JobHandler
	GeocodeHandler *GeocodeHandler
	BoardHandler   *BoardHandler

	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) *echo.Echo {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)
	e.Validator = NewAppValidator(cfg.Validator)

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())
	if cfg.FrontendURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.FrontendURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
			ExposeHeaders:    []string{echo.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(cfg.MetricsHandler))
	}

	api := e.Group("/api/v1", JWTAuth(cfg.Auth))

	api.GET("/auth/me", cfg.AuthHandler.Me)
	api.GET("/drivers", cfg.JobHandler.Drivers)

	api.GET("/jobs", cfg.JobHandler.List)
	api.POST("/jobs", cfg.JobHandler.Create)
	api.PATCH("/jobs/:id", cfg.JobHandler.Update)
	api.POST("/jobs/:id/move", cfg.JobHandler.Move)
	api.PATCH("/jobs/:id/status", cfg.JobHandler.UpdateStatus)
	api.DELETE("/jobs/:id", cfg.JobHandler.Delete)

	api.GET("/geocode", cfg.GeocodeHandler.Suggest)

	api.POST("/boards", cfg.BoardHandler.Open)
	api.GET("/boards/:id", cfg.BoardHandler.Get)
	api.POST("/boards/:id/intents", cfg.BoardHandler.Apply)
	api.DELETE("/boards/:id", cfg.BoardHandler.Close)

	return e
}
