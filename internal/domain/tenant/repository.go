package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for tenant data operations.
// Implementations run outside tenant scope (the tenants table itself is
// not covered by RLS; it anchors resolution).
type Repository interface {
	// Create creates a new tenant
	Create(ctx context.Context, t *Tenant) error

	// GetByID retrieves a tenant by id
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// GetByOwner retrieves all tenants owned by the given user, newest first
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Tenant, error)

	// Update persists changes to an existing tenant
	Update(ctx context.Context, t *Tenant) error

	// SoftDelete marks a tenant deleted without removing rows
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// ListOwnersWithMultipleTenants returns owner ids that hold more than
	// one live tenant, for the consolidation pass
	ListOwnersWithMultipleTenants(ctx context.Context) ([]uuid.UUID, error)

	// CountScopedRows counts rows in a tenant-scoped table belonging to the
	// tenant, used to pick consolidation winners
	CountScopedRows(ctx context.Context, table string, tenantID uuid.UUID) (int64, error)

	// ReassignScopedRows moves every row of a tenant-scoped table from one
	// tenant to another, returning the number of rows moved. Requires a
	// connection that bypasses RLS.
	ReassignScopedRows(ctx context.Context, table string, from, to uuid.UUID) (int64, error)
}
