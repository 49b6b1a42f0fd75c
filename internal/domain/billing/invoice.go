package billing

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// Invoice is a tenant-scoped invoice issued to one of the tenant's
// customers. AmountCents avoids float rounding on money.
type Invoice struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	customerID  uuid.UUID
	number      string
	amountCents int64
	currency    string
	status      InvoiceStatus
	issuedAt    *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewInvoice creates a draft invoice for a customer of the given tenant.
func NewInvoice(tenantID, customerID uuid.UUID, number string, amountCents int64, currency string) (*Invoice, error) {
	if tenantID == uuid.Nil {
		return nil, ErrTenantRequired
	}
	if customerID == uuid.Nil {
		return nil, ErrCustomerRequired
	}
	if number == "" {
		return nil, ErrNumberRequired
	}
	if amountCents < 0 {
		return nil, ErrNegativeAmount
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	now := time.Now().UTC()
	return &Invoice{
		id:          uuid.New(),
		tenantID:    tenantID,
		customerID:  customerID,
		number:      number,
		amountCents: amountCents,
		currency:    currency,
		status:      InvoiceStatusDraft,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructInvoice rebuilds an invoice from persistence.
func ReconstructInvoice(id, tenantID, customerID uuid.UUID, number string, amountCents int64, currency string, status InvoiceStatus, issuedAt *time.Time, createdAt, updatedAt time.Time) *Invoice {
	return &Invoice{
		id:          id,
		tenantID:    tenantID,
		customerID:  customerID,
		number:      number,
		amountCents: amountCents,
		currency:    currency,
		status:      status,
		issuedAt:    issuedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (i *Invoice) ID() uuid.UUID         { return i.id }
func (i *Invoice) TenantID() uuid.UUID   { return i.tenantID }
func (i *Invoice) CustomerID() uuid.UUID { return i.customerID }
func (i *Invoice) Number() string        { return i.number }
func (i *Invoice) AmountCents() int64    { return i.amountCents }
func (i *Invoice) Currency() string      { return i.currency }
func (i *Invoice) Status() InvoiceStatus { return i.status }
func (i *Invoice) IssuedAt() *time.Time  { return i.issuedAt }
func (i *Invoice) CreatedAt() time.Time  { return i.createdAt }
func (i *Invoice) UpdatedAt() time.Time  { return i.updatedAt }

// Send marks a draft invoice as sent.
func (i *Invoice) Send() error {
	if i.status != InvoiceStatusDraft {
		return ErrInvalidStatusChange
	}
	now := time.Now().UTC()
	i.status = InvoiceStatusSent
	i.issuedAt = &now
	i.updatedAt = now
	return nil
}

// MarkPaid records payment on a sent invoice.
func (i *Invoice) MarkPaid() error {
	if i.status != InvoiceStatusSent {
		return ErrInvalidStatusChange
	}
	i.status = InvoiceStatusPaid
	i.updatedAt = time.Now().UTC()
	return nil
}

// Void cancels an unpaid invoice.
func (i *Invoice) Void() error {
	if i.status == InvoiceStatusPaid {
		return ErrInvalidStatusChange
	}
	i.status = InvoiceStatusVoid
	i.updatedAt = time.Now().UTC()
	return nil
}
