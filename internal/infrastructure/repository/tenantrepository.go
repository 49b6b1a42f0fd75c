package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"canopy/internal/domain/tenant"
	"canopy/internal/infrastructure/persistence/mappers"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

// scopedTables whitelists the tables CountScopedRows may touch. The table
// name is interpolated, so it must never come from request input.
var scopedTables = map[string]bool{
	constants.TableCustomers: true,
	constants.TableInvoices:  true,
}

// TenantRepository persists the tenant aggregate. It always runs on the
// default (unscoped) connection: the tenants table anchors resolution and
// is not covered by RLS.
type TenantRepository struct {
	db     *gorm.DB
	mapper *mappers.TenantMapper
	logger logger.Interface
}

func NewTenantRepository(gdb *gorm.DB, log logger.Interface) tenant.Repository {
	return &TenantRepository{
		db:     gdb,
		mapper: mappers.NewTenantMapper(),
		logger: log,
	}
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	model := r.mapper.ToModel(t)
	if err := db.FromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create tenant", "error", err, "owner_id", t.OwnerID())
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	r.logger.Infow("tenant created", "tenant_id", model.ID, "owner_id", model.OwnerID)
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	var model models.TenantModel
	err := db.FromContext(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *TenantRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*tenant.Tenant, error) {
	var ms []*models.TenantModel
	err := db.FromContext(ctx, r.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tenants by owner: %w", err)
	}
	return r.mapper.ToEntities(ms), nil
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	model := r.mapper.ToModel(t)
	result := db.FromContext(ctx, r.db).
		Model(&models.TenantModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":        model.Name,
			"owner_id":    model.OwnerID,
			"is_active":   model.IsActive,
			"rls_enabled": model.RLSEnabled,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update tenant", "error", result.Error, "tenant_id", model.ID)
		return fmt.Errorf("failed to update tenant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (r *TenantRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := db.FromContext(ctx, r.db).Where("id = ?", id).Delete(&models.TenantModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete tenant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return tenant.ErrNotFound
	}
	r.logger.Infow("tenant soft-deleted", "tenant_id", id)
	return nil
}

func (r *TenantRepository) ListOwnersWithMultipleTenants(ctx context.Context) ([]uuid.UUID, error) {
	var ownerIDs []uuid.UUID
	err := db.FromContext(ctx, r.db).
		Model(&models.TenantModel{}).
		Select("owner_id").
		Where("deleted_at IS NULL").
		Group("owner_id").
		Having("COUNT(*) > 1").
		Find(&ownerIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owners with multiple tenants: %w", err)
	}
	return ownerIDs, nil
}

// CountScopedRows must run on a BYPASSRLS connection to see every
// tenant's rows; callers pass the maintenance handle through the context.
func (r *TenantRepository) CountScopedRows(ctx context.Context, table string, tenantID uuid.UUID) (int64, error) {
	if !scopedTables[table] {
		return 0, fmt.Errorf("table %q is not tenant-scoped", table)
	}
	var count int64
	err := db.FromContext(ctx, r.db).
		Table(table).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// ReassignScopedRows moves a losing tenant's rows to the consolidation
// winner. Same BYPASSRLS requirement as CountScopedRows.
func (r *TenantRepository) ReassignScopedRows(ctx context.Context, table string, from, to uuid.UUID) (int64, error) {
	if !scopedTables[table] {
		return 0, fmt.Errorf("table %q is not tenant-scoped", table)
	}
	result := db.FromContext(ctx, r.db).
		Table(table).
		Where("tenant_id = ?", from).
		Update("tenant_id", to)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reassign rows in %s: %w", table, result.Error)
	}
	r.logger.Infow("reassigned tenant-scoped rows", "table", table, "from", from, "to", to, "rows", result.RowsAffected)
	return result.RowsAffected, nil
}
