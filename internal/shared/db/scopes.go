package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotDeleted is a GORM scope that filters out soft-deleted records.
// Use this scope when querying with Model().Where().Count() or similar
// patterns that may not automatically apply soft delete filtering.
func NotDeleted() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NULL")
	}
}

// OwnedByTenant constrains writes to rows of the given tenant. Reads rely
// on row-level security; this scope is defense in depth on the write path
// only, so a bug above the repository cannot smuggle a row into a foreign
// tenant.
func OwnedByTenant(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Active filters for active (not deleted) records.
func Active() func(db *gorm.DB) *gorm.DB {
	return NotDeleted()
}
