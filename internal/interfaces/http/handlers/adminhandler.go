package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"canopy/internal/application/consistency"
	onboardingapp "canopy/internal/application/onboarding"
	tenantapp "canopy/internal/application/tenant"
	"canopy/internal/infrastructure/database"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/utils"
)

// AdminHandler groups the operational endpoints: RLS policy management,
// tenant consolidation, consistency checks and session pool inspection.
// All of them run on the maintenance connection, not the caller's tenant
// session.
type AdminHandler struct {
	policies          *database.PolicyManager
	consolidator      *tenantapp.Consolidator
	onboardingService *onboardingapp.Service
	checker           *consistency.Checker
	pool              *database.SessionPool
	logger            logger.Interface
}

func NewAdminHandler(
	policies *database.PolicyManager,
	consolidator *tenantapp.Consolidator,
	onboardingService *onboardingapp.Service,
	checker *consistency.Checker,
	pool *database.SessionPool,
	log logger.Interface,
) *AdminHandler {
	return &AdminHandler{
		policies:          policies,
		consolidator:      consolidator,
		onboardingService: onboardingService,
		checker:           checker,
		pool:              pool,
		logger:            log,
	}
}

// VerifyRLS reports the row-level security posture of every table in the
// manifest.
func (h *AdminHandler) VerifyRLS(c *gin.Context) {
	report, err := h.policies.Verify(c.Request.Context())
	if err != nil {
		h.logger.Errorw("RLS verification failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "RLS verification failed")
		return
	}

	status := http.StatusOK
	message := "all tables protected"
	if !report.OK() {
		status = http.StatusConflict
		message = "some tables are unprotected"
	}
	utils.SuccessResponse(c, status, message, report)
}

// EnableRLS enables and forces row-level security, with the tenant
// isolation policy, on every manifest table. Idempotent.
func (h *AdminHandler) EnableRLS(c *gin.Context) {
	if err := h.policies.EnableAll(c.Request.Context()); err != nil {
		h.logger.Errorw("enabling RLS failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "enabling RLS failed")
		return
	}

	report, err := h.policies.Verify(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "RLS verification failed")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "RLS enabled", report)
}

// Consolidate merges duplicate tenants per owner. Pass dry_run=true to
// get the plan without applying it.
func (h *AdminHandler) Consolidate(c *gin.Context) {
	dryRun := c.DefaultQuery("dry_run", "false") == "true"

	report, err := h.consolidator.Consolidate(c.Request.Context(), dryRun)
	if err != nil {
		h.logger.Errorw("tenant consolidation failed", "error", err, "dry_run", dryRun)
		utils.ErrorResponseWithError(c, err)
		return
	}

	message := "consolidation applied"
	if dryRun {
		message = "consolidation planned"
	}
	utils.SuccessResponse(c, http.StatusOK, message, report)
}

// RepairOnboarding rebinds onboarding rows whose tenant disagrees with
// the user's tenant. Pass apply=true to write the fixes.
func (h *AdminHandler) RepairOnboarding(c *gin.Context) {
	apply := c.DefaultQuery("apply", "false") == "true"

	report, err := h.onboardingService.Repair(c.Request.Context(), apply)
	if err != nil {
		h.logger.Errorw("onboarding repair failed", "error", err, "apply", apply)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "onboarding repair finished", report)
}

// CheckConsistency runs the full cross-cutting audit: broken tenant
// links, onboarding mismatches, RLS posture and duplicate owners.
func (h *AdminHandler) CheckConsistency(c *gin.Context) {
	repair := c.DefaultQuery("repair", "false") == "true"

	report, err := h.checker.Check(c.Request.Context(), repair)
	if err != nil {
		h.logger.Errorw("consistency check failed", "error", err, "repair", repair)
		utils.ErrorResponseWithError(c, err)
		return
	}

	status := http.StatusOK
	message := "system consistent"
	if !report.Healthy() {
		status = http.StatusConflict
		message = "inconsistencies found"
	}
	utils.SuccessResponse(c, status, message, report)
}

// ConnectionStats exposes the tenant session pool counters.
func (h *AdminHandler) ConnectionStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "session pool stats", h.pool.Stats())
}

// ReleaseConnections drops every idle pooled session. Useful after a
// parameter change or to shed idle connections under pressure.
func (h *AdminHandler) ReleaseConnections(c *gin.Context) {
	h.pool.ReleaseAll()
	h.logger.Infow("idle tenant sessions released by operator")
	utils.SuccessResponse(c, http.StatusOK, "idle sessions released", h.pool.Stats())
}
