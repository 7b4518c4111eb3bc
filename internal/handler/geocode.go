package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/service"
)

// GeocodeHandler serves address suggestions for the job editor.
type GeocodeHandler struct {
	geocoder service.Geocoder
	logger   *zap.Logger
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(geocoder service.Geocoder, logger *zap.Logger) *GeocodeHandler {
	if geocoder == nil {
		geocoder = service.NoopGeocoder{}
	}
	return &GeocodeHandler{geocoder: geocoder, logger: logger}
}

// Suggest returns suggestions for ?q=. A failing geocoder yields an empty
// list so the address stays a plain text field.
func (h *GeocodeHandler) Suggest(c echo.Context) error {
	suggestions, err := h.geocoder.Suggest(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		h.logger.Warn("geocoding failed", zap.Error(err))
		suggestions = []domain.Address{}
	}
	return JSON(c, http.StatusOK, suggestions)
}
