package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/shared/constants"
)

// InvoiceModel is a tenant-scoped persistence model. Number is unique per
// tenant, not globally; two tenants may both have INV-0001.
type InvoiceModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index:idx_invoices_tenant;uniqueIndex:idx_invoices_tenant_number"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index:idx_invoices_customer"`
	Number      string    `gorm:"not null;size:64;uniqueIndex:idx_invoices_tenant_number"`
	AmountCents int64     `gorm:"not null;default:0"`
	Currency    string    `gorm:"not null;size:3"`
	Status      string    `gorm:"not null;default:draft;size:20;index:idx_invoices_status"`
	IssuedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (InvoiceModel) TableName() string {
	return constants.TableInvoices
}
