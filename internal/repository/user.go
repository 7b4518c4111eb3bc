package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/pumpplanner/internal/domain"
)

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	domain.User
	RolesCSV string `db:"roles"`
}

// FindByID retrieves a member of orgID by id.
func (r *UserRepository) FindByID(ctx context.Context, orgID, id string) (*domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, queryUserByID, orgID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find user by id %s", id)
	}
	user := row.User
	user.Roles = parseRoles(row.RolesCSV)
	return &user, nil
}

func parseRoles(csv string) []domain.Role {
	roles := []domain.Role{}
	for _, r := range strings.Split(csv, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, domain.Role(r))
		}
	}
	return roles
}
