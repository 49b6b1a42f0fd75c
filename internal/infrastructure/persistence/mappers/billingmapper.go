package mappers

import (
	"canopy/internal/domain/billing"
	"canopy/internal/infrastructure/persistence/models"
)

// CustomerMapper converts between the customer entity and its persistence
// model.
type CustomerMapper struct{}

func NewCustomerMapper() *CustomerMapper {
	return &CustomerMapper{}
}

func (m *CustomerMapper) ToEntity(model *models.CustomerModel) *billing.Customer {
	if model == nil {
		return nil
	}
	return billing.ReconstructCustomer(
		model.ID,
		model.TenantID,
		model.Name,
		model.Email,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (m *CustomerMapper) ToModel(entity *billing.Customer) *models.CustomerModel {
	if entity == nil {
		return nil
	}
	return &models.CustomerModel{
		ID:        entity.ID(),
		TenantID:  entity.TenantID(),
		Name:      entity.Name(),
		Email:     entity.Email(),
		CreatedAt: entity.CreatedAt(),
		UpdatedAt: entity.UpdatedAt(),
	}
}

func (m *CustomerMapper) ToEntities(ms []*models.CustomerModel) []*billing.Customer {
	entities := make([]*billing.Customer, 0, len(ms))
	for _, model := range ms {
		if e := m.ToEntity(model); e != nil {
			entities = append(entities, e)
		}
	}
	return entities
}

// InvoiceMapper converts between the invoice entity and its persistence
// model.
type InvoiceMapper struct{}

func NewInvoiceMapper() *InvoiceMapper {
	return &InvoiceMapper{}
}

func (m *InvoiceMapper) ToEntity(model *models.InvoiceModel) *billing.Invoice {
	if model == nil {
		return nil
	}
	return billing.ReconstructInvoice(
		model.ID,
		model.TenantID,
		model.CustomerID,
		model.Number,
		model.AmountCents,
		model.Currency,
		billing.InvoiceStatus(model.Status),
		model.IssuedAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (m *InvoiceMapper) ToModel(entity *billing.Invoice) *models.InvoiceModel {
	if entity == nil {
		return nil
	}
	return &models.InvoiceModel{
		ID:          entity.ID(),
		TenantID:    entity.TenantID(),
		CustomerID:  entity.CustomerID(),
		Number:      entity.Number(),
		AmountCents: entity.AmountCents(),
		Currency:    entity.Currency(),
		Status:      string(entity.Status()),
		IssuedAt:    entity.IssuedAt(),
		CreatedAt:   entity.CreatedAt(),
		UpdatedAt:   entity.UpdatedAt(),
	}
}

func (m *InvoiceMapper) ToEntities(ms []*models.InvoiceModel) []*billing.Invoice {
	entities := make([]*billing.Invoice, 0, len(ms))
	for _, model := range ms {
		if e := m.ToEntity(model); e != nil {
			entities = append(entities, e)
		}
	}
	return entities
}
