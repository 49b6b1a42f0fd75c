package billing

import "errors"

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrTenantRequired      = errors.New("tenant is required")
	ErrCustomerRequired    = errors.New("customer is required")
	ErrNameRequired        = errors.New("name is required")
	ErrNumberRequired      = errors.New("invoice number is required")
	ErrNegativeAmount      = errors.New("invoice amount cannot be negative")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter code")
	ErrInvalidStatusChange = errors.New("invalid invoice status change")
)
