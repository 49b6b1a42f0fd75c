package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "canopy/internal/application/billing"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/utils"
)

// BillingHandler exposes the tenant-scoped customer and invoice routes.
// Every query runs on the request's pooled session, so row-level
// security does the per-tenant filtering.
type BillingHandler struct {
	billingService *billingapp.Service
	logger         logger.Interface
}

func NewBillingHandler(billingService *billingapp.Service, log logger.Interface) *BillingHandler {
	return &BillingHandler{billingService: billingService, logger: log}
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "malformed id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *BillingHandler) CreateCustomer(c *gin.Context) {
	var req billingapp.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid customer payload")
		return
	}

	customer, err := h.billingService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, customer, "customer created")
}

func (h *BillingHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	customer, err := h.billingService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "customer retrieved", customer)
}

func (h *BillingHandler) ListCustomers(c *gin.Context) {
	page, pageSize := parsePagination(c)

	customers, total, err := h.billingService.ListCustomers(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, customers, total, page, pageSize)
}

func (h *BillingHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req billingapp.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid customer payload")
		return
	}

	customer, err := h.billingService.UpdateCustomer(c.Request.Context(), id, req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "customer updated", customer)
}

func (h *BillingHandler) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.billingService.DeleteCustomer(c.Request.Context(), id); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

func (h *BillingHandler) CreateInvoice(c *gin.Context) {
	var req billingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid invoice payload")
		return
	}

	invoice, err := h.billingService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, invoice, "invoice created")
}

func (h *BillingHandler) GetInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	invoice, err := h.billingService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "invoice retrieved", invoice)
}

func (h *BillingHandler) ListInvoices(c *gin.Context) {
	page, pageSize := parsePagination(c)

	invoices, total, err := h.billingService.ListInvoices(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, invoices, total, page, pageSize)
}

func (h *BillingHandler) SendInvoice(c *gin.Context) {
	h.transition(c, h.billingService.SendInvoice, "invoice sent")
}

func (h *BillingHandler) MarkInvoicePaid(c *gin.Context) {
	h.transition(c, h.billingService.MarkInvoicePaid, "invoice marked paid")
}

func (h *BillingHandler) VoidInvoice(c *gin.Context) {
	h.transition(c, h.billingService.VoidInvoice, "invoice voided")
}

func (h *BillingHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, id uuid.UUID) (*billingapp.InvoiceResponse, error),
	message string,
) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	invoice, err := fn(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, message, invoice)
}
