package tenant

import (
	"time"

	"github.com/google/uuid"
)

// TenantResponse is the API view of a tenant.
type TenantResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	OwnerID    uuid.UUID `json:"owner_id"`
	IsActive   bool      `json:"is_active"`
	RLSEnabled bool      `json:"rls_enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateTenantRequest carries the business-info step input.
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// RenameTenantRequest updates the display name.
type RenameTenantRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// ConsolidationMove describes one owner's planned or applied merge.
type ConsolidationMove struct {
	OwnerID        uuid.UUID   `json:"owner_id"`
	WinnerID       uuid.UUID   `json:"winner_id"`
	LoserIDs       []uuid.UUID `json:"loser_ids"`
	RowsReassigned int64       `json:"rows_reassigned"`
	UsersRelinked  int         `json:"users_relinked"`
}

// ConsolidationReport summarizes a consolidation pass.
type ConsolidationReport struct {
	DryRun bool                `json:"dry_run"`
	Moves  []ConsolidationMove `json:"moves"`
}
