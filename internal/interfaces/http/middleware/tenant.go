package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	tenantapp "canopy/internal/application/tenant"
	domainTenant "canopy/internal/domain/tenant"
	"canopy/internal/infrastructure/cache"
	"canopy/internal/infrastructure/database"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
	"canopy/internal/shared/utils"
)

// tenantResolver is the slice of the tenant service the middleware needs.
type tenantResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*tenantapp.TenantResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*tenantapp.TenantResponse, error)
}

// resolutionCache is the slice of the redis tenant cache the middleware
/// needs. Entries are advisory: a hit that fails to load falls back to
// full resolution.
type resolutionCache interface {
	Get(ctx context.Context, userUUID string) (*cache.TenantEntry, error)
	Set(ctx context.Context, userUUID string, entry *cache.TenantEntry) error
	Invalidate(ctx context.Context, userUUID string) error
}

// tenantSession is what the middleware needs from a pooled session.
type tenantSession interface {
	DB() *gorm.DB
	Release()
}

type sessionPool interface {
	Acquire(ctx context.Context, tenantID uuid.UUID) (tenantSession, error)
}

// poolAdapter narrows the concrete pool to the sessionPool interface.
type poolAdapter struct {
	pool *database.SessionPool
}

func (a poolAdapter) Acquire(ctx context.Context, tenantID uuid.UUID) (tenantSession, error) {
	s, err := a.pool.Acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// TenantMiddleware binds every request to exactly one tenant. It resolves
// the caller's tenant, rejects cross-tenant assertions, installs the
// tenant id in the request context, and checks out a database session
// whose connection carries the tenant's id for RLS. The session is
// returned to the pool when the request finishes.
type TenantMiddleware struct {
	resolver tenantResolver
	pool     sessionPool
	cache    resolutionCache
	logger   logger.Interface
}

func NewTenantMiddleware(
	resolver tenantResolver,
	pool *database.SessionPool,
	tenantCache *cache.TenantCache,
	log logger.Interface,
) *TenantMiddleware {
	m := &TenantMiddleware{
		resolver: resolver,
		pool:     poolAdapter{pool: pool},
		logger:   log,
	}
	if tenantCache != nil {
		m.cache = tenantCache
	}
	return m
}

// RequireTenant resolves and binds the tenant, failing the request when
// the caller has none.
func (m *TenantMiddleware) RequireTenant() gin.HandlerFunc {
	return m.resolve(true)
}

// OptionalTenant binds the tenant when resolvable and passes through
// otherwise. Pre-onboarding routes use this: a user mid-signup has no
// tenant yet.
func (m *TenantMiddleware) OptionalTenant() gin.HandlerFunc {
	return m.resolve(false)
}

func (m *TenantMiddleware) resolve(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := m.resolveTenant(c, required)
		if !ok {
			return
		}
		if tenant == nil {
			c.Next()
			return
		}

		if !tenant.IsActive {
			utils.ErrorResponse(c, http.StatusForbidden, "tenant is not active")
			c.Abort()
			return
		}

		ctx := tenantctx.WithTenant(c.Request.Context(), tenant.ID)

		session, err := m.pool.Acquire(ctx, tenant.ID)
		if err != nil {
			// Without a tenant-configured session every RLS read returns
			// zero rows; failing loudly beats serving empty data.
			m.logger.Errorw("failed to acquire tenant session", "tenant_id", tenant.ID, "error", err)
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "database session unavailable")
			c.Abort()
			return
		}
		defer session.Release()

		ctx = db.WithSession(ctx, session.DB())
		c.Request = c.Request.WithContext(ctx)
		c.Set(constants.ContextKeyTenantID, tenant.ID.String())

		c.Next()
	}
}

// resolveTenant picks the tenant for the request. Service callers may
// assert any tenant with X-Tenant-ID; human callers get their own tenant
// and a cross-tenant assertion is refused and logged.
func (m *TenantMiddleware) resolveTenant(c *gin.Context, required bool) (*tenantapp.TenantResponse, bool) {
	ctx := c.Request.Context()
	asserted := c.GetHeader(constants.HeaderXTenantID)

	if c.GetBool(constants.ContextKeyServiceCall) {
		if asserted == "" {
			utils.ErrorResponse(c, http.StatusBadRequest, "service calls must assert X-Tenant-ID")
			c.Abort()
			return nil, false
		}
		tenantID, err := uuid.Parse(asserted)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "malformed X-Tenant-ID")
			c.Abort()
			return nil, false
		}
		tenant, err := m.resolver.Get(ctx, tenantID)
		if err != nil {
			utils.ErrorResponse(c, http.StatusForbidden, "unknown tenant")
			c.Abort()
			return nil, false
		}
		return tenant, true
	}

	userID, err := uuid.Parse(c.GetString(constants.ContextKeyUserID))
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authenticated user")
		c.Abort()
		return nil, false
	}

	tenant, err := m.lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, domainTenant.ErrNotFound) {
			if !required {
				return nil, true
			}
			utils.ErrorResponse(c, http.StatusForbidden, "no tenant associated with this account")
			c.Abort()
			return nil, false
		}
		m.logger.Errorw("tenant resolution failed", "user_id", userID, "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "tenant resolution failed")
		c.Abort()
		return nil, false
	}

	if asserted != "" {
		if _, err := uuid.Parse(asserted); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "malformed X-Tenant-ID")
			c.Abort()
			return nil, false
		}
	}

	// A human caller asserting a tenant other than their own is a
	// cross-tenant probe; refuse and leave a trail.
	if asserted != "" && asserted != tenant.ID.String() {
		m.logger.Warnw("cross-tenant assertion refused",
			"user_id", userID,
			"resolved_tenant", tenant.ID,
			"asserted_tenant", asserted,
			"remote_addr", c.ClientIP(),
			"path", c.Request.URL.Path)
		utils.ErrorResponse(c, http.StatusForbidden, "tenant assertion does not match your account")
		c.Abort()
		return nil, false
	}

	return tenant, true
}

// lookup consults the redis cache before the tenant service. A cached
// tenant that no longer loads (consolidated away, deactivated and purged)
// is dropped and resolution falls through to the linked/owned lookup, so
// a stale entry can never outlive its TTL as an error.
func (m *TenantMiddleware) lookup(ctx context.Context, userID uuid.UUID) (*tenantapp.TenantResponse, error) {
	if m.cache != nil {
		if entry, err := m.cache.Get(ctx, userID.String()); err == nil {
			tenant, getErr := m.resolver.Get(ctx, entry.TenantID)
			if getErr == nil {
				return tenant, nil
			}
			m.logger.Warnw("dropping stale tenant cache entry",
				"user_id", userID, "cached_tenant", entry.TenantID, "error", getErr)
			if invErr := m.cache.Invalidate(ctx, userID.String()); invErr != nil {
				m.logger.Warnw("failed to invalidate tenant cache entry", "user_id", userID, "error", invErr)
			}
		}
	}

	tenant, err := m.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, userID.String(), &cache.TenantEntry{
			TenantID: tenant.ID,
			IsActive: tenant.IsActive,
		}); err != nil {
			m.logger.Warnw("failed to cache tenant resolution", "user_id", userID, "error", err)
		}
	}
	return tenant, nil
}
