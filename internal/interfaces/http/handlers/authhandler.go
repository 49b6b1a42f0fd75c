package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authapp "canopy/internal/application/auth"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/utils"
)

type AuthHandler struct {
	authService *authapp.Service
	logger      logger.Interface
}

func NewAuthHandler(authService *authapp.Service, log logger.Interface) *AuthHandler {
	return &AuthHandler{authService: authService, logger: log}
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login starts the OIDC authorization code flow and redirects the
// browser to the identity provider.
func (h *AuthHandler) Login(c *gin.Context) {
	url, err := h.authService.LoginURL(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to build login URL", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to start login")
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback exchanges the authorization code for tokens and signs the
// user in, creating the account on first login.
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "state and code are required")
		return
	}

	result, err := h.authService.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		h.logger.Warnw("OIDC callback rejected", "error", err, "client_ip", c.ClientIP())
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "login successful", result)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "token refreshed", pair)
}
