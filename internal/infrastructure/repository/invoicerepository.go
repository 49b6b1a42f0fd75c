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

// InvoiceRepository persists tenant-scoped invoices; same visibility
// contract as CustomerRepository.
type InvoiceRepository struct {
	db     *gorm.DB
	mapper *mappers.InvoiceMapper
	logger logger.Interface
}

func NewInvoiceRepository(gdb *gorm.DB, log logger.Interface) billing.InvoiceRepository {
	return &InvoiceRepository{
		db:     gdb,
		mapper: mappers.NewInvoiceMapper(),
		logger: log,
	}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok || tenantID != inv.TenantID() {
		return fmt.Errorf("invoice tenant does not match request tenant")
	}
	model := r.mapper.ToModel(inv)
	if err := db.FromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create invoice", "error", err, "tenant_id", tenantID, "number", model.Number)
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := db.FromContext(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int) ([]*billing.Invoice, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	conn := db.FromContext(ctx, r.db)

	var total int64
	if err := conn.Model(&models.InvoiceModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	var ms []*models.InvoiceModel
	err := conn.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&ms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return r.mapper.ToEntities(ms), total, nil
}

func (r *InvoiceRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.Invoice, error) {
	var ms []*models.InvoiceModel
	err := db.FromContext(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices by customer: %w", err)
	}
	return r.mapper.ToEntities(ms), nil
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *billing.Invoice) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return fmt.Errorf("no tenant bound to request")
	}
	model := r.mapper.ToModel(inv)
	result := db.FromContext(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Where("id = ?", model.ID).
		Scopes(db.OwnedByTenant(tenantID)).
		Updates(map[string]any{
			"amount_cents": model.AmountCents,
			"currency":     model.Currency,
			"status":       model.Status,
			"issued_at":    model.IssuedAt,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}
