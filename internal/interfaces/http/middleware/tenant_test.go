package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	tenantapp "canopy/internal/application/tenant"
	domainTenant "canopy/internal/domain/tenant"
	"canopy/internal/infrastructure/cache"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
)

type fakeResolver struct {
	byUser   map[uuid.UUID]*tenantapp.TenantResponse
	byTenant map[uuid.UUID]*tenantapp.TenantResponse
}

func (f *fakeResolver) Resolve(_ context.Context, userID uuid.UUID) (*tenantapp.TenantResponse, error) {
	t, ok := f.byUser[userID]
	if !ok {
		return nil, domainTenant.ErrNotFound
	}
	return t, nil
}

func (f *fakeResolver) Get(_ context.Context, id uuid.UUID) (*tenantapp.TenantResponse, error) {
	t, ok := f.byTenant[id]
	if !ok {
		return nil, domainTenant.ErrNotFound
	}
	return t, nil
}

type fakeSession struct {
	db       *gorm.DB
	released bool
}

func (s *fakeSession) DB() *gorm.DB { return s.db }
func (s *fakeSession) Release()     { s.released = true }

type fakePool struct {
	db       *gorm.DB
	failWith error
	sessions []*fakeSession
}

func (p *fakePool) Acquire(_ context.Context, _ uuid.UUID) (tenantSession, error) {
	if p.failWith != nil {
		return nil, p.failWith
	}
	s := &fakeSession{db: p.db}
	p.sessions = append(p.sessions, s)
	return s, nil
}

type fakeCache struct {
	entries     map[string]*cache.TenantEntry
	invalidated []string
	setCalls    int
}

func (f *fakeCache) Get(_ context.Context, userUUID string) (*cache.TenantEntry, error) {
	e, ok := f.entries[userUUID]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return e, nil
}

func (f *fakeCache) Set(_ context.Context, userUUID string, entry *cache.TenantEntry) error {
	f.entries[userUUID] = entry
	f.setCalls++
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, userUUID string) error {
	delete(f.entries, userUUID)
	f.invalidated = append(f.invalidated, userUUID)
	return nil
}

type tenantFixture struct {
	resolver *fakeResolver
	pool     *fakePool
	mw       *TenantMiddleware
}

func newTenantFixture(t *testing.T) *tenantFixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	resolver := &fakeResolver{
		byUser:   make(map[uuid.UUID]*tenantapp.TenantResponse),
		byTenant: make(map[uuid.UUID]*tenantapp.TenantResponse),
	}
	pool := &fakePool{db: gdb}
	return &tenantFixture{
		resolver: resolver,
		pool:     pool,
		mw: &TenantMiddleware{
			resolver: resolver,
			pool:     pool,
			logger:   logger.NewLogger(),
		},
	}
}

func (f *tenantFixture) withCache() *fakeCache {
	fc := &fakeCache{entries: make(map[string]*cache.TenantEntry)}
	f.mw.cache = fc
	return fc
}

func (f *tenantFixture) addTenant(userID uuid.UUID, active bool) *tenantapp.TenantResponse {
	t := &tenantapp.TenantResponse{
		ID:       uuid.New(),
		Name:     "Fixture Co",
		OwnerID:  userID,
		IsActive: active,
	}
	f.resolver.byUser[userID] = t
	f.resolver.byTenant[t.ID] = t
	return t
}

// router builds a gin engine with a stand-in auth step that publishes the
// given gin context keys, then the handler under test.
func (f *tenantFixture) router(handler gin.HandlerFunc, keys map[string]any, required bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		for k, v := range keys {
			c.Set(k, v)
		}
		c.Next()
	})
	if required {
		r.Use(f.mw.RequireTenant())
	} else {
		r.Use(f.mw.OptionalTenant())
	}
	r.GET("/probe", handler)
	return r
}

func doProbe(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireTenantBindsContextAndSession(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()
	tenant := f.addTenant(userID, true)

	var seen uuid.UUID
	r := f.router(func(c *gin.Context) {
		seen = tenantctx.MustTenantID(c.Request.Context())
		c.Status(http.StatusOK)
	}, map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenant.ID, seen)
	require.Len(t, f.pool.sessions, 1)
	assert.True(t, f.pool.sessions[0].released, "session must return to the pool after the request")
}

func TestRequireTenantRejectsUnauthenticated(t *testing.T) {
	f := newTenantFixture(t)
	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) }, nil, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireTenantRejectsUserWithoutTenant(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()
	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalTenantPassesThroughWithoutTenant(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()

	var hadTenant bool
	r := f.router(func(c *gin.Context) {
		_, hadTenant = tenantctx.TenantID(c.Request.Context())
		c.Status(http.StatusOK)
	}, map[string]any{constants.ContextKeyUserID: userID.String()}, false)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, hadTenant)
	assert.Empty(t, f.pool.sessions, "no session should be pooled without a tenant")
}

func TestRequireTenantRejectsInactiveTenant(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()
	f.addTenant(userID, false)

	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireTenantRefusesCrossTenantAssertion(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()
	f.addTenant(userID, true)
	other := f.addTenant(uuid.New(), true)

	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, map[string]string{constants.HeaderXTenantID: other.ID.String()})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.pool.sessions)

	w = doProbe(r, map[string]string{constants.HeaderXTenantID: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireTenantAllowsMatchingAssertion(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()
	tenant := f.addTenant(userID, true)

	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, map[string]string{constants.HeaderXTenantID: tenant.ID.String()})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceCallAssertsTenantDirectly(t *testing.T) {
	f := newTenantFixture(t)
	tenant := f.addTenant(uuid.New(), true)

	var seen uuid.UUID
	r := f.router(func(c *gin.Context) {
		seen = tenantctx.MustTenantID(c.Request.Context())
		c.Status(http.StatusOK)
	}, map[string]any{constants.ContextKeyServiceCall: true}, true)

	w := doProbe(r, map[string]string{constants.HeaderXTenantID: tenant.ID.String()})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenant.ID, seen)
}

func TestServiceCallRequiresTenantHeader(t *testing.T) {
	f := newTenantFixture(t)
	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyServiceCall: true}, true)

	assert.Equal(t, http.StatusBadRequest, doProbe(r, nil).Code)

	w := doProbe(r, map[string]string{constants.HeaderXTenantID: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doProbe(r, map[string]string{constants.HeaderXTenantID: uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, w.Code, "unknown tenant assertions are refused")
}

func TestRequireTenantRecoversFromStaleCacheEntry(t *testing.T) {
	f := newTenantFixture(t)
	fc := f.withCache()
	userID := uuid.New()
	tenant := f.addTenant(userID, true)

	// Cached resolution points at a tenant that no longer exists,
	// e.g. one removed by consolidation after the entry was written.
	fc.entries[userID.String()] = &cache.TenantEntry{TenantID: uuid.New(), IsActive: true}

	var seen uuid.UUID
	r := f.router(func(c *gin.Context) {
		seen = tenantctx.MustTenantID(c.Request.Context())
		c.Status(http.StatusOK)
	}, map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenant.ID, seen, "must fall back to live resolution")
	assert.Contains(t, fc.invalidated, userID.String())
	require.Contains(t, fc.entries, userID.String())
	assert.Equal(t, tenant.ID, fc.entries[userID.String()].TenantID, "fresh resolution is re-cached")
}

func TestRequireTenantStaleCacheWithoutTenantIsForbidden(t *testing.T) {
	f := newTenantFixture(t)
	fc := f.withCache()
	userID := uuid.New()
	fc.entries[userID.String()] = &cache.TenantEntry{TenantID: uuid.New(), IsActive: true}

	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, fc.invalidated, userID.String())
}

func TestRequireTenantFailsWhenPoolUnavailable(t *testing.T) {
	f := newTenantFixture(t)
	userID := uuid.New()
	f.addTenant(userID, true)
	f.pool.failWith = errors.New("pool exhausted")

	r := f.router(func(c *gin.Context) { c.Status(http.StatusOK) },
		map[string]any{constants.ContextKeyUserID: userID.String()}, true)

	w := doProbe(r, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
