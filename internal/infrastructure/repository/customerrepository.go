package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/domain/billing"
	"canopy/internal/infrastructure/persistence/mappers"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
)

// CustomerRepository persists tenant-scoped customers. Reads carry no
// tenant filter: the tenant-configured session the middleware put in the
// context makes RLS do the filtering. Writes additionally pin the tenant
// id from the context as defense in depth.
type CustomerRepository struct {
	db     *gorm.DB
	mapper *mappers.CustomerMapper
	logger logger.Interface
}

func NewCustomerRepository(gdb *gorm.DB, log logger.Interface) billing.CustomerRepository {
	return &CustomerRepository{
		db:     gdb,
		mapper: mappers.NewCustomerMapper(),
		logger: log,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *billing.Customer) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID != c.TenantID() {
		return fmt.Errorf("customer tenant does not match request tenant")
	}
	model := r.mapper.ToModel(c)
	if err := db.FromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create customer", "error", err, "tenant_id", tenantID)
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Customer, error) {
	var model models.CustomerModel
	err := db.FromContext(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *CustomerRepository) List(ctx context.Context, page, pageSize int) ([]*billing.Customer, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	conn := db.FromContext(ctx, r.db)

	var total int64
	if err := conn.Model(&models.CustomerModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	var ms []*models.CustomerModel
	err := conn.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&ms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	return r.mapper.ToEntities(ms), total, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *billing.Customer) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return fmt.Errorf("no tenant bound to request")
	}
	model := r.mapper.ToModel(c)
	result := db.FromContext(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("id = ?", model.ID).
		Scopes(db.OwnedByTenant(tenantID)).
		Updates(map[string]any{
			"name":       model.Name,
			"email":      model.Email,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return fmt.Errorf("no tenant bound to request")
	}
	result := db.FromContext(ctx, r.db).
		Where("id = ?", id).
		Scopes(db.OwnedByTenant(tenantID)).
		Delete(&models.CustomerModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrCustomerNotFound
	}
	return nil
}
