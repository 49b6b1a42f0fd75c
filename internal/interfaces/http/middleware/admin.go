package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"canopy/internal/infrastructure/permission"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/utils"
)

// AdminMiddleware guards the operational endpoints (RLS verification,
// consolidation, connection stats) behind the RBAC enforcer.
type AdminMiddleware struct {
	enforcer *permission.Enforcer
	logger   logger.Interface
}

func NewAdminMiddleware(enforcer *permission.Enforcer, log logger.Interface) *AdminMiddleware {
	return &AdminMiddleware{enforcer: enforcer, logger: log}
}

func (m *AdminMiddleware) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Service callers are trusted infrastructure and bypass RBAC.
		if c.GetBool(constants.ContextKeyServiceCall) {
			c.Next()
			return
		}

		userID := c.GetString(constants.ContextKeyUserID)
		if userID == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
			c.Abort()
			return
		}

		allowed, err := m.enforcer.Enforce(userID, resource, action)
		if err != nil {
			m.logger.Errorw("permission check failed", "error", err, "user_id", userID, "resource", resource, "action", action)
			utils.ErrorResponse(c, http.StatusInternalServerError, "permission check failed")
			c.Abort()
			return
		}

		// Policies are granted to roles; fall back to the role carried
		// in the token when the user has no direct grant.
		if !allowed {
			if role := c.GetString(constants.ContextKeyUserRole); role != "" {
				allowed, err = m.enforcer.Enforce(role, resource, action)
				if err != nil {
					m.logger.Errorw("role permission check failed", "error", err, "role", role, "resource", resource, "action", action)
					utils.ErrorResponse(c, http.StatusInternalServerError, "permission check failed")
					c.Abort()
					return
				}
			}
		}

		if !allowed {
			m.logger.Warnw("permission denied", "user_id", userID, "resource", resource, "action", action)
			utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}
