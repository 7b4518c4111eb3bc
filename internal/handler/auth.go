package handler

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/sumire/pumpplanner/internal/domain"
)

// UserLookup resolves the user row behind an identity.
type UserLookup interface {
	GetUser(ctx context.Context, id domain.Identity) (*domain.User, error)
}

// AuthHandler handles identity endpoints.
type AuthHandler struct {
	users UserLookup
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users UserLookup) *AuthHandler {
	return &AuthHandler{users: users}
}

type meResponse struct {
	Identity      domain.Identity `json:"identity"`
	CanManageJobs bool            `json:"can_manage_jobs"`
	User          *domain.User    `json:"user,omitempty"`
}

// Me returns the authenticated identity and, when it exists, its user row.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	return JSON(c, http.StatusOK, meResponse{
		Identity:      id,
		CanManageJobs: id.CanManageJobs(),
		User:          user,
	})
}
