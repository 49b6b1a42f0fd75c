package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"canopy/internal/infrastructure/auth"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/utils"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	logger     logger.Interface
}

func NewAuthMiddleware(jwtService *auth.JWTService, log logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     log,
	}
}

// RequireAuth validates the bearer token and records the caller's
// identity on the gin context. Tenant binding happens later, in the
// tenant middleware.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.jwtService.Verify(parts[1])
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != auth.TokenTypeAccess {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid token type")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, claims.UserUUID)
		c.Set(constants.ContextKeyUserRole, claims.Role)

		c.Next()
	}
}

// RequireServiceKey authenticates service-to-service callers via the
// X-Service-Key header. Marked requests may assert X-Tenant-ID directly.
func (m *AuthMiddleware) RequireServiceKey(verifier *auth.ServiceKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(constants.HeaderXServiceKey)
		if err := verifier.Verify(key); err != nil {
			m.logger.Warnw("service key rejected", "remote_addr", c.ClientIP())
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid service key")
			c.Abort()
			return
		}
		c.Set(constants.ContextKeyServiceCall, true)
		c.Next()
	}
}

// RequireAuthOrServiceKey accepts either a user bearer token or a
// service key. Requests carrying X-Service-Key take the service path.
func (m *AuthMiddleware) RequireAuthOrServiceKey(verifier *auth.ServiceKeyVerifier) gin.HandlerFunc {
	requireAuth := m.RequireAuth()
	requireKey := m.RequireServiceKey(verifier)
	return func(c *gin.Context) {
		if c.GetHeader(constants.HeaderXServiceKey) != "" {
			requireKey(c)
			return
		}
		requireAuth(c)
	}
}
