package onboarding

import (
	"time"

	"github.com/google/uuid"
)

// ProgressResponse is the API view of a user's signup progress.
type ProgressResponse struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Status    string         `json:"status"`
	TenantID  *uuid.UUID     `json:"tenant_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AdvanceRequest moves the flow one step forward.
type AdvanceRequest struct {
	Status string `json:"status" binding:"required"`
	// BusinessName is required when advancing to business_info; it names
	// the tenant created for the user.
	BusinessName string         `json:"business_name,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RepairReport summarizes a repair pass over mismatched progress rows.
type RepairReport struct {
	Checked int `json:"checked"`
	Rebound int `json:"rebound"`
	Skipped int `json:"skipped"`
}
