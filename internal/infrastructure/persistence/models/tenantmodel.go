package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/shared/constants"
)

// TenantModel is the persistence model for tenants. The table itself is
// not tenant-scoped; tenants are the scoping dimension.
type TenantModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string    `gorm:"not null;size:255"`
	// OwnerID is intentionally a plain index: historical data contains
	// owners with several tenants, which consolidation exists to repair.
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_tenants_owner"`
	IsActive   bool      `gorm:"not null;default:true;index:idx_tenants_active"`
	RLSEnabled bool      `gorm:"column:rls_enabled;not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (TenantModel) TableName() string {
	return constants.TableTenants
}
