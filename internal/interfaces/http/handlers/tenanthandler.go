package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tenantapp "canopy/internal/application/tenant"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
	"canopy/internal/shared/utils"
)

type TenantHandler struct {
	tenantService *tenantapp.Service
	logger        logger.Interface
}

func NewTenantHandler(tenantService *tenantapp.Service, log logger.Interface) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, logger: log}
}

// Create ensures the caller has a tenant, creating one when they have
// none. Idempotent: an existing tenant is returned unchanged regardless
// of the requested name.
func (h *TenantHandler) Create(c *gin.Context) {
	callerID, err := uuid.Parse(c.GetString(constants.ContextKeyUserID))
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authenticated user")
		return
	}

	var req tenantapp.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "name is required")
		return
	}

	tenant, err := h.tenantService.EnsureTenantForUser(c.Request.Context(), callerID, req.Name)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, tenant, "tenant created")
}

// GetCurrent returns the tenant bound to this request.
func (h *TenantHandler) GetCurrent(c *gin.Context) {
	tenantID, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		utils.ErrorResponse(c, http.StatusForbidden, "no tenant bound to this request")
		return
	}

	tenant, err := h.tenantService.Get(c.Request.Context(), tenantID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "tenant retrieved", tenant)
}

func (h *TenantHandler) Rename(c *gin.Context) {
	tenantID, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		utils.ErrorResponse(c, http.StatusForbidden, "no tenant bound to this request")
		return
	}

	callerID, err := uuid.Parse(c.GetString(constants.ContextKeyUserID))
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authenticated user")
		return
	}

	var req tenantapp.RenameTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "name is required")
		return
	}

	tenant, err := h.tenantService.Rename(c.Request.Context(), tenantID, callerID, req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "tenant renamed", tenant)
}

// Deactivate disables the tenant and unlinks its members. Owner only.
func (h *TenantHandler) Deactivate(c *gin.Context) {
	tenantID, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		utils.ErrorResponse(c, http.StatusForbidden, "no tenant bound to this request")
		return
	}

	callerID, err := uuid.Parse(c.GetString(constants.ContextKeyUserID))
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authenticated user")
		return
	}

	tenant, err := h.tenantService.Get(c.Request.Context(), tenantID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if tenant.OwnerID != callerID {
		h.logger.Warnw("non-owner attempted tenant deactivation", "tenant_id", tenantID, "user_id", callerID)
		utils.ErrorResponse(c, http.StatusForbidden, "only the tenant owner can deactivate it")
		return
	}

	if err := h.tenantService.Deactivate(c.Request.Context(), tenantID); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}
