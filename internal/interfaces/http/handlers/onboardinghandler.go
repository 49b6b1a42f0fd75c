package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	onboardingapp "canopy/internal/application/onboarding"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/utils"
)

type OnboardingHandler struct {
	onboardingService *onboardingapp.Service
	logger            logger.Interface
}

func NewOnboardingHandler(onboardingService *onboardingapp.Service, log logger.Interface) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService, logger: log}
}

func (h *OnboardingHandler) callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetString(constants.ContextKeyUserID))
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authenticated user")
		return uuid.Nil, false
	}
	return userID, true
}

// Start creates the caller's onboarding record if it does not exist yet.
func (h *OnboardingHandler) Start(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	progress, err := h.onboardingService.Start(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "onboarding started", progress)
}

func (h *OnboardingHandler) Get(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	progress, err := h.onboardingService.Get(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "onboarding progress retrieved", progress)
}

// Advance moves the caller to the requested step. The business-info step
// creates the tenant; completing sends the welcome email.
func (h *OnboardingHandler) Advance(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req onboardingapp.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "status is required")
		return
	}

	progress, err := h.onboardingService.Advance(c.Request.Context(), userID, req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "onboarding advanced", progress)
}
