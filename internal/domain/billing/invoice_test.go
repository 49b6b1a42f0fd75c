package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), uuid.New(), "INV-0001", 12500, "USD")
	require.NoError(t, err)
	return inv
}

func TestNewInvoiceValidation(t *testing.T) {
	tenantID := uuid.New()
	customerID := uuid.New()

	tests := []struct {
		name    string
		build   func() (*Invoice, error)
		wantErr error
	}{
		{"missing tenant", func() (*Invoice, error) {
			return NewInvoice(uuid.Nil, customerID, "INV-1", 100, "USD")
		}, ErrTenantRequired},
		{"missing customer", func() (*Invoice, error) {
			return NewInvoice(tenantID, uuid.Nil, "INV-1", 100, "USD")
		}, ErrCustomerRequired},
		{"missing number", func() (*Invoice, error) {
			return NewInvoice(tenantID, customerID, "", 100, "USD")
		}, ErrNumberRequired},
		{"negative amount", func() (*Invoice, error) {
			return NewInvoice(tenantID, customerID, "INV-1", -1, "USD")
		}, ErrNegativeAmount},
		{"bad currency", func() (*Invoice, error) {
			return NewInvoice(tenantID, customerID, "INV-1", 100, "US")
		}, ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	inv := newTestInvoice(t)
	assert.Equal(t, InvoiceStatusDraft, inv.Status())
	assert.Nil(t, inv.IssuedAt())

	require.NoError(t, inv.Send())
	assert.Equal(t, InvoiceStatusSent, inv.Status())
	assert.NotNil(t, inv.IssuedAt())

	require.NoError(t, inv.MarkPaid())
	assert.Equal(t, InvoiceStatusPaid, inv.Status())
}

func TestInvoiceIllegalTransitions(t *testing.T) {
	inv := newTestInvoice(t)

	// Cannot pay a draft
	assert.ErrorIs(t, inv.MarkPaid(), ErrInvalidStatusChange)

	require.NoError(t, inv.Send())
	require.NoError(t, inv.MarkPaid())

	// Cannot void or resend a paid invoice
	assert.ErrorIs(t, inv.Void(), ErrInvalidStatusChange)
	assert.ErrorIs(t, inv.Send(), ErrInvalidStatusChange)
}

func TestInvoiceVoidBeforePayment(t *testing.T) {
	inv := newTestInvoice(t)
	require.NoError(t, inv.Send())
	require.NoError(t, inv.Void())
	assert.Equal(t, InvoiceStatusVoid, inv.Status())
}
