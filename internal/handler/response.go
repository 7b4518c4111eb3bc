package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/domain"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an error in the API response.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// NewHTTPErrorHandler returns the global error handler for echo.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, apiErr := mapError(err)
		if status == http.StatusInternalServerError {
			logger.Error("unhandled error",
				zap.Error(err),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
		}
		if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
			logger.Error("failed to send error response", zap.Error(jsonErr))
		}
	}
}

func mapError(err error) (int, APIError) {
	// Handle echo's own HTTP errors (404, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{
			Code:    http.StatusText(echoErr.Code),
			Message: msg,
		}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, APIError{
			Code:    "validation_error",
			Message: domain.UserMessage(err, "Validation failed"),
			Details: []FieldError{
				{Field: validationErr.Field, Message: validationErr.Message},
			},
		}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: domain.UserMessage(err, "The requested resource was not found"),
		}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{
			Code:    "unauthorized",
			Message: "Authentication is required",
		}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, APIError{
			Code:    "forbidden",
			Message: domain.UserMessage(err, "You do not have permission to perform this action"),
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, APIError{
			Code:    "invalid_input",
			Message: domain.UserMessage(err, "The request body is invalid"),
		}
	case errors.Is(err, domain.ErrIgnored):
		return http.StatusUnprocessableEntity, APIError{
			Code:    "ignored",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "An unexpected error occurred",
		}
	}
}
