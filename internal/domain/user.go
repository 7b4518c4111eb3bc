package domain

import (
	"slices"
	"time"
)

// Role represents a user's role within an organization.
type Role string

const (
	RoleDispatcher        Role = "dispatcher"
	RoleManager           Role = "manager"
	RoleOrganizationAdmin Role = "organization_admin"
	RoleAccountant        Role = "accountant"
	// RoleDriver is the pump operator role, persisted under its historical name.
	RoleDriver Role = "pompist"
)

// jobManagerRoles may create, move, resize and delete jobs.
var jobManagerRoles = []Role{RoleDispatcher, RoleManager, RoleOrganizationAdmin}

// User represents a member of an organization.
type User struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	FirstName      string    `json:"first_name" db:"first_name"`
	LastName       string    `json:"last_name" db:"last_name"`
	Email          *string   `json:"email,omitempty" db:"email"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	Roles          []Role    `json:"roles" db:"-"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is the authenticated caller as asserted by the identity provider.
type Identity struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Roles          []Role `json:"roles"`
}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role Role) bool {
	return slices.Contains(i.Roles, role)
}

// CanManageJobs reports whether the identity may mutate the calendar.
func (i Identity) CanManageJobs() bool {
	return slices.ContainsFunc(i.Roles, func(r Role) bool {
		return slices.Contains(jobManagerRoles, r)
	})
}
