// Package billing exposes the tenant-scoped business operations. Every
// method requires a tenant-bound context; visibility inside a tenant is
// enforced by the database session the middleware installed, not by
// filters here.
package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainBilling "canopy/internal/domain/billing"
	apperrors "canopy/internal/shared/errors"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
)

type Service struct {
	customers domainBilling.CustomerRepository
	invoices  domainBilling.InvoiceRepository
	logger    logger.Interface
}

func NewService(
	customers domainBilling.CustomerRepository,
	invoices domainBilling.InvoiceRepository,
	log logger.Interface,
) *Service {
	return &Service{
		customers: customers,
		invoices:  invoices,
		logger:    log,
	}
}

func requestTenant(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return uuid.Nil, apperrors.NewForbiddenError("no tenant bound to request")
	}
	return tenantID, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	tenantID, err := requestTenant(ctx)
	if err != nil {
		return nil, err
	}
	c, err := domainBilling.NewCustomer(tenantID, req.Name, req.Email)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return toCustomerResponse(c), nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainBilling.ErrCustomerNotFound) {
			return nil, apperrors.NewNotFoundError("customer not found")
		}
		return nil, err
	}
	return toCustomerResponse(c), nil
}

func (s *Service) ListCustomers(ctx context.Context, page, pageSize int) ([]*CustomerResponse, int64, error) {
	cs, total, err := s.customers.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*CustomerResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCustomerResponse(c))
	}
	return out, total, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainBilling.ErrCustomerNotFound) {
			return nil, apperrors.NewNotFoundError("customer not found")
		}
		return nil, err
	}
	if err := c.Rename(req.Name); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return toCustomerResponse(c), nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.customers.Delete(ctx, id); err != nil {
		if errors.Is(err, domainBilling.ErrCustomerNotFound) {
			return apperrors.NewNotFoundError("customer not found")
		}
		return err
	}
	return nil
}

func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	tenantID, err := requestTenant(ctx)
	if err != nil {
		return nil, err
	}

	// The customer lookup runs on the tenant session, so a foreign
	// customer id is simply not found.
	if _, err := s.customers.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, domainBilling.ErrCustomerNotFound) {
			return nil, apperrors.NewNotFoundError("customer not found")
		}
		return nil, err
	}

	inv, err := domainBilling.NewInvoice(tenantID, req.CustomerID, req.Number, req.AmountCents, req.Currency)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainBilling.ErrInvoiceNotFound) {
			return nil, apperrors.NewNotFoundError("invoice not found")
		}
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

func (s *Service) ListInvoices(ctx context.Context, page, pageSize int) ([]*InvoiceResponse, int64, error) {
	invs, total, err := s.invoices.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*InvoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, total, nil
}

// transition applies one lifecycle move and persists it.
func (s *Service) transition(ctx context.Context, id uuid.UUID, fn func(*domainBilling.Invoice) error) (*InvoiceResponse, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainBilling.ErrInvoiceNotFound) {
			return nil, apperrors.NewNotFoundError("invoice not found")
		}
		return nil, err
	}
	if err := fn(inv); err != nil {
		return nil, apperrors.NewConflictError(err.Error())
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

func (s *Service) SendInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.transition(ctx, id, (*domainBilling.Invoice).Send)
}

func (s *Service) MarkInvoicePaid(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.transition(ctx, id, (*domainBilling.Invoice).MarkPaid)
}

func (s *Service) VoidInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.transition(ctx, id, (*domainBilling.Invoice).Void)
}

func toCustomerResponse(c *domainBilling.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:        c.ID(),
		TenantID:  c.TenantID(),
		Name:      c.Name(),
		Email:     c.Email(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

func toInvoiceResponse(inv *domainBilling.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:          inv.ID(),
		TenantID:    inv.TenantID(),
		CustomerID:  inv.CustomerID(),
		Number:      inv.Number(),
		AmountCents: inv.AmountCents(),
		Currency:    inv.Currency(),
		Status:      string(inv.Status()),
		IssuedAt:    inv.IssuedAt(),
		CreatedAt:   inv.CreatedAt(),
		UpdatedAt:   inv.UpdatedAt(),
	}
}
