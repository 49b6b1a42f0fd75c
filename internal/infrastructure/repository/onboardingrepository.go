package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/domain/onboarding"
	"canopy/internal/infrastructure/persistence/mappers"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

// OnboardingRepository persists signup progress on the unscoped
// connection; progress rows exist before a tenant is bound.
type OnboardingRepository struct {
	db     *gorm.DB
	mapper *mappers.OnboardingProgressMapper
	logger logger.Interface
}

func NewOnboardingRepository(gdb *gorm.DB, log logger.Interface) onboarding.Repository {
	return &OnboardingRepository{
		db:     gdb,
		mapper: mappers.NewOnboardingProgressMapper(),
		logger: log,
	}
}

func (r *OnboardingRepository) Create(ctx context.Context, p *onboarding.Progress) error {
	model, err := r.mapper.ToModel(p)
	if err != nil {
		return err
	}
	if err := db.FromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create onboarding progress", "error", err, "user_id", model.UserID)
		return fmt.Errorf("failed to create onboarding progress: %w", err)
	}
	return nil
}

func (r *OnboardingRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*onboarding.Progress, error) {
	var model models.OnboardingProgressModel
	err := db.FromContext(ctx, r.db).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, onboarding.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get onboarding progress: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *OnboardingRepository) Update(ctx context.Context, p *onboarding.Progress) error {
	model, err := r.mapper.ToModel(p)
	if err != nil {
		return err
	}
	result := db.FromContext(ctx, r.db).
		Model(&models.OnboardingProgressModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"status":     model.Status,
			"tenant_id":  model.TenantID,
			"metadata":   model.Metadata,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update onboarding progress", "error", result.Error, "progress_id", model.ID)
		return fmt.Errorf("failed to update onboarding progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return onboarding.ErrNotFound
	}
	return nil
}

// ListMismatched returns progress rows whose tenant binding disagrees with
// the owning user's tenant_id. Both NULL counts as agreement.
func (r *OnboardingRepository) ListMismatched(ctx context.Context) ([]*onboarding.Progress, error) {
	var ms []*models.OnboardingProgressModel
	err := db.FromContext(ctx, r.db).
		Joins("JOIN users ON users.id = onboarding_progress.user_id AND users.deleted_at IS NULL").
		Where("(onboarding_progress.tenant_id IS NULL AND users.tenant_id IS NOT NULL)" +
			" OR (onboarding_progress.tenant_id IS NOT NULL AND users.tenant_id IS NULL)" +
			" OR onboarding_progress.tenant_id <> users.tenant_id").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mismatched onboarding progress: %w", err)
	}
	return r.mapper.ToEntities(ms)
}

func (r *OnboardingRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*onboarding.Progress, error) {
	var ms []*models.OnboardingProgressModel
	err := db.FromContext(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list onboarding progress by tenant: %w", err)
	}
	return r.mapper.ToEntities(ms)
}
