package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"canopy/internal/shared/constants"
)

// OnboardingProgressModel is the persistence model for per-user signup
// progress. One row per user; TenantID stays NULL until the business-info
// step creates or resolves a tenant.
type OnboardingProgressModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_onboarding_user"`
	Status    string         `gorm:"not null;default:not_started;size:20;index:idx_onboarding_status"`
	TenantID  *uuid.UUID     `gorm:"type:uuid;index:idx_onboarding_tenant"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (OnboardingProgressModel) TableName() string {
	return constants.TableOnboardingProgress
}
