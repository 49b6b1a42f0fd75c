package onboarding

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for onboarding progress persistence
type Repository interface {
	// Create creates a progress record
	Create(ctx context.Context, p *Progress) error

	// GetByUser retrieves the progress record for a user
	GetByUser(ctx context.Context, userID uuid.UUID) (*Progress, error)

	// Update persists changes to a progress record
	Update(ctx context.Context, p *Progress) error

	// ListMismatched returns progress records whose tenant binding
	// disagrees with the owning user's resolved tenant
	ListMismatched(ctx context.Context) ([]*Progress, error)

	// ListByTenant retrieves progress records bound to a tenant
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Progress, error)
}
