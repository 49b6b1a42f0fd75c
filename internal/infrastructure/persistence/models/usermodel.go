package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/shared/constants"
)

// UserModel is the persistence model for users. TenantID is a nullable
// foreign key; it is derived from tenants.owner_id and only the tenant
// service writes it.
type UserModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AuthSubject string     `gorm:"not null;size:255;uniqueIndex:idx_users_auth_subject"`
	Email       string     `gorm:"not null;size:255;index:idx_users_email"`
	Role        string     `gorm:"not null;default:member;size:20"`
	TenantID    *uuid.UUID `gorm:"type:uuid;index:idx_users_tenant"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string {
	return constants.TableUsers
}
