package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/pumpplanner/internal/domain"
)

// DriverRepository lists the pump operators of an organization.
type DriverRepository struct {
	db *sqlx.DB
}

// NewDriverRepository creates a new DriverRepository.
func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// ListActive returns active users holding the driver role, by name.
func (r *DriverRepository) ListActive(ctx context.Context, orgID string) ([]domain.Driver, error) {
	drivers := []domain.Driver{}
	if err := r.db.SelectContext(ctx, &drivers, queryActiveDrivers, orgID, string(domain.RoleDriver)); err != nil {
		return nil, errors.Wrap(err, "list active drivers")
	}
	return drivers, nil
}
