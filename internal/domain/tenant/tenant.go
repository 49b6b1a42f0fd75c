// Package tenant holds the tenant aggregate, the unit of data isolation.
// Every tenant-scoped row in the system carries this aggregate's id, and
// row-level security makes rows invisible outside the owning tenant.
package tenant

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 255

// Tenant represents one customer organization.
type Tenant struct {
	id         uuid.UUID
	name       string
	ownerID    uuid.UUID
	isActive   bool
	rlsEnabled bool
	createdAt  time.Time
	updatedAt  time.Time
}

// NewTenant creates a tenant owned by the given user. The owner linkage is
// the single source of truth for tenant identity; users.tenant_id is a
// derived reference maintained by the tenant service.
func NewTenant(name string, ownerID uuid.UUID) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(name) > maxNameLength {
		return nil, ErrNameTooLong
	}
	if ownerID == uuid.Nil {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	return &Tenant{
		id:         uuid.New(),
		name:       name,
		ownerID:    ownerID,
		isActive:   true,
		rlsEnabled: true,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a tenant from persistence.
func Reconstruct(id uuid.UUID, name string, ownerID uuid.UUID, isActive, rlsEnabled bool, createdAt, updatedAt time.Time) *Tenant {
	return &Tenant{
		id:         id,
		name:       name,
		ownerID:    ownerID,
		isActive:   isActive,
		rlsEnabled: rlsEnabled,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (t *Tenant) ID() uuid.UUID        { return t.id }
func (t *Tenant) Name() string         { return t.name }
func (t *Tenant) OwnerID() uuid.UUID   { return t.ownerID }
func (t *Tenant) IsActive() bool       { return t.isActive }
func (t *Tenant) RLSEnabled() bool     { return t.rlsEnabled }
func (t *Tenant) CreatedAt() time.Time { return t.createdAt }
func (t *Tenant) UpdatedAt() time.Time { return t.updatedAt }

// IsOwnedBy reports whether the given user owns this tenant.
func (t *Tenant) IsOwnedBy(userID uuid.UUID) bool {
	return t.ownerID != uuid.Nil && t.ownerID == userID
}

// Rename changes the tenant display name.
func (t *Tenant) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	t.name = name
	t.updatedAt = time.Now().UTC()
	return nil
}

// Deactivate soft-disables the tenant. Rows are retained for audit; the
// resolution middleware refuses to bind inactive tenants.
func (t *Tenant) Deactivate() {
	t.isActive = false
	t.updatedAt = time.Now().UTC()
}

// Activate re-enables a previously deactivated tenant.
func (t *Tenant) Activate() {
	t.isActive = true
	t.updatedAt = time.Now().UTC()
}

// MarkRLSEnabled records that row-level security policies cover this
// tenant's scoped tables.
func (t *Tenant) MarkRLSEnabled(enabled bool) {
	t.rlsEnabled = enabled
	t.updatedAt = time.Now().UTC()
}
