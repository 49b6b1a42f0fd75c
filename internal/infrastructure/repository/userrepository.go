package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/domain/user"
	"canopy/internal/infrastructure/persistence/mappers"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

// UserRepository persists the user aggregate on the unscoped connection;
// users exist before any tenant does.
type UserRepository struct {
	db     *gorm.DB
	mapper *mappers.UserMapper
	logger logger.Interface
}

func NewUserRepository(gdb *gorm.DB, log logger.Interface) user.Repository {
	return &UserRepository{
		db:     gdb,
		mapper: mappers.NewUserMapper(),
		logger: log,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	model := r.mapper.ToModel(u)
	if err := db.FromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create user", "error", err, "email", model.Email)
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.logger.Infow("user created", "user_id", model.ID, "email", model.Email)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var model models.UserModel
	err := db.FromContext(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *UserRepository) GetByAuthSubject(ctx context.Context, subject string) (*user.User, error) {
	var model models.UserModel
	err := db.FromContext(ctx, r.db).Where("auth_subject = ?", subject).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by auth subject: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model models.UserModel
	err := db.FromContext(ctx, r.db).Where("email = ?", email).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	model := r.mapper.ToModel(u)
	result := db.FromContext(ctx, r.db).
		Model(&models.UserModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"email":      model.Email,
			"role":       model.Role,
			"tenant_id":  model.TenantID,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update user", "error", result.Error, "user_id", model.ID)
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*user.User, error) {
	var ms []*models.UserModel
	err := db.FromContext(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users by tenant: %w", err)
	}
	return r.mapper.ToEntities(ms), nil
}

// ListWithBrokenTenantLink finds users whose tenant_id points at a
// missing or soft-deleted tenant.
func (r *UserRepository) ListWithBrokenTenantLink(ctx context.Context) ([]*user.User, error) {
	var ms []*models.UserModel
	err := db.FromContext(ctx, r.db).
		Where("tenant_id IS NOT NULL").
		Where("tenant_id NOT IN (?)",
			db.FromContext(ctx, r.db).
				Model(&models.TenantModel{}).
				Select("id").
				Where("deleted_at IS NULL"),
		).
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users with broken tenant link: %w", err)
	}
	return r.mapper.ToEntities(ms), nil
}
