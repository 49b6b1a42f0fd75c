package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/shared/constants"
)

// CustomerModel is a tenant-scoped persistence model. TenantID is the
// column the row-level security policy evaluates.
type CustomerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index:idx_customers_tenant"`
	Name      string    `gorm:"not null;size:255"`
	Email     string    `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (CustomerModel) TableName() string {
	return constants.TableCustomers
}
