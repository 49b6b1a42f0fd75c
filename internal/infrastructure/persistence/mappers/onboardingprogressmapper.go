package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"canopy/internal/domain/onboarding"
	"canopy/internal/infrastructure/persistence/models"
)

// OnboardingProgressMapper converts between the progress aggregate and its
// persistence model, including the JSONB metadata column.
type OnboardingProgressMapper struct{}

func NewOnboardingProgressMapper() *OnboardingProgressMapper {
	return &OnboardingProgressMapper{}
}

func (m *OnboardingProgressMapper) ToEntity(model *models.OnboardingProgressModel) (*onboarding.Progress, error) {
	if model == nil {
		return nil, nil
	}

	metadata := map[string]any{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal onboarding metadata: %w", err)
		}
	}

	return onboarding.Reconstruct(
		model.ID,
		model.UserID,
		onboarding.Status(model.Status),
		model.TenantID,
		metadata,
		model.CreatedAt,
		model.UpdatedAt,
	), nil
}

func (m *OnboardingProgressMapper) ToModel(entity *onboarding.Progress) (*models.OnboardingProgressModel, error) {
	if entity == nil {
		return nil, nil
	}

	metadata, err := json.Marshal(entity.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal onboarding metadata: %w", err)
	}

	model := &models.OnboardingProgressModel{
		ID:        entity.ID(),
		UserID:    entity.UserID(),
		Status:    string(entity.Status()),
		Metadata:  datatypes.JSON(metadata),
		CreatedAt: entity.CreatedAt(),
		UpdatedAt: entity.UpdatedAt(),
	}
	if id, ok := entity.TenantID(); ok {
		model.TenantID = &id
	}
	return model, nil
}

func (m *OnboardingProgressMapper) ToEntities(ms []*models.OnboardingProgressModel) ([]*onboarding.Progress, error) {
	entities := make([]*onboarding.Progress, 0, len(ms))
	for _, model := range ms {
		e, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entities = append(entities, e)
		}
	}
	return entities, nil
}
