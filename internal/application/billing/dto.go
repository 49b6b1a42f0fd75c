package billing

import (
	"time"

	"github.com/google/uuid"
)

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=255"`
	Email string `json:"email" binding:"omitempty,email"`
}

type UpdateCustomerRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

type InvoiceResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	Number      string     `json:"number"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateInvoiceRequest struct {
	CustomerID  uuid.UUID `json:"customer_id" binding:"required"`
	Number      string    `json:"number" binding:"required,min=1,max=64"`
	AmountCents int64     `json:"amount_cents" binding:"min=0"`
	Currency    string    `json:"currency" binding:"required,currency"`
}
