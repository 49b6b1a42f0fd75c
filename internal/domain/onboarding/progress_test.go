package onboarding

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressStartsAtNotStarted(t *testing.T) {
	p, err := NewProgress(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, p.Status())
	assert.False(t, p.IsComplete())

	_, bound := p.TenantID()
	assert.False(t, bound)
}

func TestNewProgressRequiresUser(t *testing.T) {
	_, err := NewProgress(uuid.Nil)
	assert.ErrorIs(t, err, ErrUserRequired)
}

func TestAdvanceFollowsTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"not_started to business_info", StatusNotStarted, StatusBusinessInfo, true},
		{"business_info to subscription", StatusBusinessInfo, StatusSubscription, true},
		{"subscription to payment", StatusSubscription, StatusPayment, true},
		{"payment to setup", StatusPayment, StatusSetup, true},
		{"setup to complete", StatusSetup, StatusComplete, true},
		{"skip a step", StatusNotStarted, StatusSubscription, false},
		{"skip to complete", StatusBusinessInfo, StatusComplete, false},
		{"go backwards", StatusPayment, StatusBusinessInfo, false},
		{"stay in place", StatusSetup, StatusSetup, false},
		{"advance from complete", StatusComplete, StatusBusinessInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAdvanceRejectsIllegalMove(t *testing.T) {
	p, err := NewProgress(uuid.New())
	require.NoError(t, err)

	err = p.Advance(StatusPayment)
	require.Error(t, err)

	var transErr *TransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, StatusNotStarted, transErr.From)
	assert.Equal(t, StatusPayment, transErr.To)

	// State unchanged after rejection
	assert.Equal(t, StatusNotStarted, p.Status())
}

func TestCompleteRequiresBoundTenant(t *testing.T) {
	p, err := NewProgress(uuid.New())
	require.NoError(t, err)

	for _, step := range []Status{StatusBusinessInfo, StatusSubscription, StatusPayment, StatusSetup} {
		require.NoError(t, p.Advance(step))
	}

	err = p.Advance(StatusComplete)
	assert.ErrorIs(t, err, ErrTenantNotBound)

	require.NoError(t, p.BindTenant(uuid.New()))
	require.NoError(t, p.Advance(StatusComplete))
	assert.True(t, p.IsComplete())
}

func TestFullFlowRoundTrip(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	p, err := NewProgress(userID)
	require.NoError(t, err)

	require.NoError(t, p.Advance(StatusBusinessInfo))
	require.NoError(t, p.BindTenant(tenantID))
	require.NoError(t, p.Advance(StatusSubscription))
	require.NoError(t, p.Advance(StatusPayment))
	require.NoError(t, p.Advance(StatusSetup))
	require.NoError(t, p.Advance(StatusComplete))

	got, bound := p.TenantID()
	require.True(t, bound)
	assert.Equal(t, tenantID, got)
}

func TestResetClearsStateAndTenant(t *testing.T) {
	p, err := NewProgress(uuid.New())
	require.NoError(t, err)

	require.NoError(t, p.Advance(StatusBusinessInfo))
	require.NoError(t, p.BindTenant(uuid.New()))

	p.Reset()

	assert.Equal(t, StatusNotStarted, p.Status())
	_, bound := p.TenantID()
	assert.False(t, bound)
}

func TestBindTenantRejectsNil(t *testing.T) {
	p, err := NewProgress(uuid.New())
	require.NoError(t, err)

	assert.ErrorIs(t, p.BindTenant(uuid.Nil), ErrInvalidTenant)
}
