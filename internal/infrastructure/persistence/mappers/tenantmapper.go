package mappers

import (
	"canopy/internal/domain/tenant"
	"canopy/internal/infrastructure/persistence/models"
)

// TenantMapper converts between the tenant aggregate and its persistence
// model.
type TenantMapper struct{}

func NewTenantMapper() *TenantMapper {
	return &TenantMapper{}
}

func (m *TenantMapper) ToEntity(model *models.TenantModel) *tenant.Tenant {
	if model == nil {
		return nil
	}
	return tenant.Reconstruct(
		model.ID,
		model.Name,
		model.OwnerID,
		model.IsActive,
		model.RLSEnabled,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (m *TenantMapper) ToModel(entity *tenant.Tenant) *models.TenantModel {
	if entity == nil {
		return nil
	}
	return &models.TenantModel{
		ID:         entity.ID(),
		Name:       entity.Name(),
		OwnerID:    entity.OwnerID(),
		IsActive:   entity.IsActive(),
		RLSEnabled: entity.RLSEnabled(),
		CreatedAt:  entity.CreatedAt(),
		UpdatedAt:  entity.UpdatedAt(),
	}
}

func (m *TenantMapper) ToEntities(ms []*models.TenantModel) []*tenant.Tenant {
	entities := make([]*tenant.Tenant, 0, len(ms))
	for _, model := range ms {
		if e := m.ToEntity(model); e != nil {
			entities = append(entities, e)
		}
	}
	return entities
}
