package billing

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence.
// Read visibility is enforced by RLS on the request session; no method
// takes a tenant filter for reads.
type CustomerRepository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, page, pageSize int) ([]*Customer, int64, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceRepository defines the interface for invoice persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, page, pageSize int) ([]*Invoice, int64, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
}
