package mappers

import (
	"github.com/google/uuid"

	"canopy/internal/domain/user"
	"canopy/internal/infrastructure/persistence/models"
)

// UserMapper converts between the user aggregate and its persistence
// model.
type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(model *models.UserModel) *user.User {
	if model == nil {
		return nil
	}
	return user.Reconstruct(
		model.ID,
		model.AuthSubject,
		model.Email,
		user.Role(model.Role),
		model.TenantID,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (m *UserMapper) ToModel(entity *user.User) *models.UserModel {
	if entity == nil {
		return nil
	}
	var tenantID *uuid.UUID
	if id, ok := entity.TenantID(); ok {
		tenantID = &id
	}
	return &models.UserModel{
		ID:          entity.ID(),
		AuthSubject: entity.AuthSubject(),
		Email:       entity.Email(),
		Role:        string(entity.Role()),
		TenantID:    tenantID,
		CreatedAt:   entity.CreatedAt(),
		UpdatedAt:   entity.UpdatedAt(),
	}
}

func (m *UserMapper) ToEntities(ms []*models.UserModel) []*user.User {
	entities := make([]*user.User, 0, len(ms))
	for _, model := range ms {
		if e := m.ToEntity(model); e != nil {
			entities = append(entities, e)
		}
	}
	return entities
}
