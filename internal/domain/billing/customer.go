// Package billing holds the tenant-scoped business entities. Each row
// carries a tenant_id column that is both a real foreign key and the
// discriminant row-level security evaluates; repositories never filter
// reads by tenant themselves.
package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is a tenant's customer record.
type Customer struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	name      string
	email     string
	createdAt time.Time
	updatedAt time.Time
}

// NewCustomer creates a customer within the given tenant.
func NewCustomer(tenantID uuid.UUID, name, email string) (*Customer, error) {
	if tenantID == uuid.Nil {
		return nil, ErrTenantRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email = strings.ToLower(strings.TrimSpace(email))

	now := time.Now().UTC()
	return &Customer{
		id:        uuid.New(),
		tenantID:  tenantID,
		name:      name,
		email:     email,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructCustomer rebuilds a customer from persistence.
func ReconstructCustomer(id, tenantID uuid.UUID, name, email string, createdAt, updatedAt time.Time) *Customer {
	return &Customer{
		id:        id,
		tenantID:  tenantID,
		name:      name,
		email:     email,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (c *Customer) ID() uuid.UUID        { return c.id }
func (c *Customer) TenantID() uuid.UUID  { return c.tenantID }
func (c *Customer) Name() string         { return c.name }
func (c *Customer) Email() string        { return c.email }
func (c *Customer) CreatedAt() time.Time { return c.createdAt }
func (c *Customer) UpdatedAt() time.Time { return c.updatedAt }

// Rename changes the customer display name.
func (c *Customer) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	c.name = name
	c.updatedAt = time.Now().UTC()
	return nil
}
