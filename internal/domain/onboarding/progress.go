// Package onboarding tracks a user's signup flow as an explicit state
// machine. Every transition goes through Advance, which consults a fixed
// transition table; there is no other write path, so progress cannot drift
// from the order the flow defines.
package onboarding

import (
	"time"

	"github.com/google/uuid"
)

// Status is one step of the signup flow.
type Status string

const (
	StatusNotStarted   Status = "not_started"
	StatusBusinessInfo Status = "business_info"
	StatusSubscription Status = "subscription"
	StatusPayment      Status = "payment"
	StatusSetup        Status = "setup"
	StatusComplete     Status = "complete"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok || s == StatusComplete
}

// transitions maps each status to its one legal successor.
var transitions = map[Status]Status{
	StatusNotStarted:   StatusBusinessInfo,
	StatusBusinessInfo: StatusSubscription,
	StatusSubscription: StatusPayment,
	StatusPayment:      StatusSetup,
	StatusSetup:        StatusComplete,
}

// CanTransition reports whether from may advance directly to to.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Progress is the per-user onboarding record.
type Progress struct {
	id        uuid.UUID
	userID    uuid.UUID
	status    Status
	tenantID  *uuid.UUID
	metadata  map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// NewProgress starts tracking onboarding for a user.
func NewProgress(userID uuid.UUID) (*Progress, error) {
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	now := time.Now().UTC()
	return &Progress{
		id:        uuid.New(),
		userID:    userID,
		status:    StatusNotStarted,
		metadata:  map[string]any{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds progress from persistence.
func Reconstruct(id, userID uuid.UUID, status Status, tenantID *uuid.UUID, metadata map[string]any, createdAt, updatedAt time.Time) *Progress {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Progress{
		id:        id,
		userID:    userID,
		status:    status,
		tenantID:  tenantID,
		metadata:  metadata,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (p *Progress) ID() uuid.UUID        { return p.id }
func (p *Progress) UserID() uuid.UUID    { return p.userID }
func (p *Progress) Status() Status       { return p.status }
func (p *Progress) Metadata() map[string]any { return p.metadata }
func (p *Progress) CreatedAt() time.Time { return p.createdAt }
func (p *Progress) UpdatedAt() time.Time { return p.updatedAt }

// TenantID returns the tenant bound during onboarding, or false when the
// business-info step has not run yet.
func (p *Progress) TenantID() (uuid.UUID, bool) {
	if p.tenantID == nil || *p.tenantID == uuid.Nil {
		return uuid.Nil, false
	}
	return *p.tenantID, true
}

// IsComplete reports whether onboarding finished.
func (p *Progress) IsComplete() bool {
	return p.status == StatusComplete
}

// Advance moves progress to the given step. Only the single legal
// successor is accepted; completing requires a bound tenant.
func (p *Progress) Advance(to Status) error {
	if !to.Valid() {
		return ErrUnknownStatus
	}
	if !CanTransition(p.status, to) {
		return &TransitionError{From: p.status, To: to}
	}
	if to == StatusComplete {
		if _, ok := p.TenantID(); !ok {
			return ErrTenantNotBound
		}
	}
	p.status = to
	p.updatedAt = time.Now().UTC()
	return nil
}

// BindTenant records the tenant created during the business-info step.
func (p *Progress) BindTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return ErrInvalidTenant
	}
	p.tenantID = &tenantID
	p.updatedAt = time.Now().UTC()
	return nil
}

// RebindTenant repoints progress at another tenant (repair and
// consolidation paths only).
func (p *Progress) RebindTenant(tenantID uuid.UUID) error {
	return p.BindTenant(tenantID)
}

// Reset returns progress to the start. Administrative use only.
func (p *Progress) Reset() {
	p.status = StatusNotStarted
	p.tenantID = nil
	p.updatedAt = time.Now().UTC()
}

// SetMetadata attaches a flow attribute (plan selection, referral source).
func (p *Progress) SetMetadata(key string, value any) {
	if p.metadata == nil {
		p.metadata = map[string]any{}
	}
	p.metadata[key] = value
	p.updatedAt = time.Now().UTC()
}
