// Package user holds the authenticated principal. A user is associated
// with at most one tenant; the linkage is a real foreign key kept
// consistent by the tenant service, never written anywhere else.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the user's role within their tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleAdmin:
		return true
	}
	return false
}

// User represents an authenticated principal.
type User struct {
	id          uuid.UUID
	authSubject string
	email       string
	role        Role
	tenantID    *uuid.UUID
	createdAt   time.Time
	updatedAt   time.Time
}

// NewUser creates a user from identity-provider claims. authSubject is the
// IdP subject identifier (Auth0 "sub") and must be unique.
func NewUser(authSubject, email string) (*User, error) {
	authSubject = strings.TrimSpace(authSubject)
	if authSubject == "" {
		return nil, ErrSubjectRequired
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()
	return &User{
		id:          uuid.New(),
		authSubject: authSubject,
		email:       email,
		role:        RoleOwner,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a user from persistence.
func Reconstruct(id uuid.UUID, authSubject, email string, role Role, tenantID *uuid.UUID, createdAt, updatedAt time.Time) *User {
	return &User{
		id:          id,
		authSubject: authSubject,
		email:       email,
		role:        role,
		tenantID:    tenantID,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (u *User) ID() uuid.UUID       { return u.id }
func (u *User) AuthSubject() string { return u.authSubject }
func (u *User) Email() string       { return u.email }
func (u *User) Role() Role          { return u.role }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// TenantID returns the linked tenant, or false when the user has none yet
// (pre-onboarding state).
func (u *User) TenantID() (uuid.UUID, bool) {
	if u.tenantID == nil || *u.tenantID == uuid.Nil {
		return uuid.Nil, false
	}
	return *u.tenantID, true
}

// LinkTenant binds the user to a tenant. Only the tenant service calls
// this, inside the same transaction that records ownership.
func (u *User) LinkTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return ErrInvalidTenantLink
	}
	u.tenantID = &tenantID
	u.updatedAt = time.Now().UTC()
	return nil
}

// UnlinkTenant clears the tenant binding (tenant deactivated or
// consolidation repointed the user).
func (u *User) UnlinkTenant() {
	u.tenantID = nil
	u.updatedAt = time.Now().UTC()
}

// SetRole updates the user's role.
func (u *User) SetRole(role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	u.role = role
	u.updatedAt = time.Now().UTC()
	return nil
}

// IsAdmin reports whether the user may use the administrative surface.
func (u *User) IsAdmin() bool {
	return u.role == RoleAdmin
}
