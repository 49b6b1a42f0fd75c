package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user data operations
type Repository interface {
	// Create creates a new user
	Create(ctx context.Context, u *User) error

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByAuthSubject retrieves a user by identity-provider subject
	GetByAuthSubject(ctx context.Context, subject string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists changes to an existing user
	Update(ctx context.Context, u *User) error

	// ListByTenant retrieves all users linked to a tenant
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*User, error)

	// ListWithBrokenTenantLink returns users whose tenant_id references a
	// missing or deleted tenant, for the consistency checker
	ListWithBrokenTenantLink(ctx context.Context) ([]*User, error)
}
