package handler

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/service"
)

const (
	contextKeyIdentity = "identity"
)

// TokenValidator turns a bearer token into the caller's identity.
type TokenValidator interface {
	ValidateToken(token string) (*domain.Identity, error)
}

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the status before it is logged.
				c.Error(err)
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return nil
		}
	}
}

// JWTAuth validates the Bearer token and stores the identity in both the echo
// context and the request context.
func JWTAuth(auth TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return domain.ErrUnauthorized
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return domain.ErrUnauthorized
			}

			id, err := auth.ValidateToken(parts[1])
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(contextKeyIdentity, *id)
			req := c.Request()
			c.SetRequest(req.WithContext(service.WithIdentity(req.Context(), *id)))
			return next(c)
		}
	}
}

// GetIdentity extracts the authenticated caller from echo context.
func GetIdentity(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(contextKeyIdentity).(domain.Identity)
	return id, ok
}

func mustIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := GetIdentity(c)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return id, nil
}
