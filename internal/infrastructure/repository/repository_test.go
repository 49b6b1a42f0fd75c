package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"canopy/internal/domain/billing"
	"canopy/internal/domain/onboarding"
	"canopy/internal/domain/tenant"
	"canopy/internal/domain/user"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
)

// Tests run on sqlite, so row-level security is out of scope here; they
// cover mapping, write scoping, and the consistency queries.
func setupTestDB(t *testing.T) *gorm.DB {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = gdb.AutoMigrate(
		&models.TenantModel{},
		&models.UserModel{},
		&models.OnboardingProgressModel{},
		&models.CustomerModel{},
		&models.InvoiceModel{},
	)
	require.NoError(t, err)
	return gdb
}

func createTestUser(t *testing.T, repo user.Repository) *user.User {
	t.Helper()
	u, err := user.NewUser("auth0|"+uuid.NewString(), uuid.NewString()+"@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestTenantRepositoryCRUD(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	owner := uuid.New()
	tn, err := tenant.NewTenant("Acme Corp", owner)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tn))

	found, err := repo.GetByID(ctx, tn.ID())
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", found.Name())
	assert.Equal(t, owner, found.OwnerID())
	assert.True(t, found.IsActive())

	require.NoError(t, found.Rename("Acme Inc"))
	require.NoError(t, repo.Update(ctx, found))

	renamed, err := repo.GetByID(ctx, tn.ID())
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", renamed.Name())

	require.NoError(t, repo.SoftDelete(ctx, tn.ID()))
	_, err = repo.GetByID(ctx, tn.ID())
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestTenantRepositoryGetByIDNotFound(t *testing.T) {
	repo := NewTenantRepository(setupTestDB(t), logger.NewLogger())
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestTenantRepositoryListOwnersWithMultipleTenants(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	dupOwner := uuid.New()
	singleOwner := uuid.New()

	for _, tc := range []struct {
		name  string
		owner uuid.UUID
	}{
		{"First", dupOwner},
		{"Second", dupOwner},
		{"Only", singleOwner},
	} {
		tn, err := tenant.NewTenant(tc.name, tc.owner)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, tn))
	}

	owners, err := repo.ListOwnersWithMultipleTenants(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, dupOwner, owners[0])
}

func TestTenantRepositoryCountScopedRowsRejectsUnknownTable(t *testing.T) {
	repo := NewTenantRepository(setupTestDB(t), logger.NewLogger())
	_, err := repo.CountScopedRows(context.Background(), "users; DROP TABLE users", uuid.New())
	assert.Error(t, err)
}

func TestUserRepositoryLookups(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewUserRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	u, err := user.NewUser("auth0|abc123", "Owner@Example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, u))

	bySubject, err := repo.GetByAuthSubject(ctx, "auth0|abc123")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), bySubject.ID())
	assert.Equal(t, "owner@example.com", bySubject.Email())

	byEmail, err := repo.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), byEmail.ID())

	_, err = repo.GetByAuthSubject(ctx, "auth0|missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

// Two identity-provider subjects may share an address. Identity is keyed
// on auth_subject, so the second create must not collide on email.
func TestUserRepositoryAllowsSharedEmailAcrossSubjects(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewUserRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	first, err := user.NewUser("auth0|alice", "shared@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := user.NewUser("google-oauth2|alice", "shared@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, second))

	bySubject, err := repo.GetByAuthSubject(ctx, "google-oauth2|alice")
	require.NoError(t, err)
	assert.Equal(t, second.ID(), bySubject.ID())
	assert.NotEqual(t, first.ID(), bySubject.ID())
}

func TestUserRepositoryTenantLink(t *testing.T) {
	gdb := setupTestDB(t)
	userRepo := NewUserRepository(gdb, logger.NewLogger())
	tenantRepo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	u := createTestUser(t, userRepo)
	tn, err := tenant.NewTenant("Acme", u.ID())
	require.NoError(t, err)
	require.NoError(t, tenantRepo.Create(ctx, tn))

	require.NoError(t, u.LinkTenant(tn.ID()))
	require.NoError(t, userRepo.Update(ctx, u))

	linked, err := userRepo.GetByID(ctx, u.ID())
	require.NoError(t, err)
	linkedTenant, ok := linked.TenantID()
	require.True(t, ok)
	assert.Equal(t, tn.ID(), linkedTenant)

	members, err := userRepo.ListByTenant(ctx, tn.ID())
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestUserRepositoryListWithBrokenTenantLink(t *testing.T) {
	gdb := setupTestDB(t)
	userRepo := NewUserRepository(gdb, logger.NewLogger())
	tenantRepo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	healthy := createTestUser(t, userRepo)
	tn, err := tenant.NewTenant("Live", healthy.ID())
	require.NoError(t, err)
	require.NoError(t, tenantRepo.Create(ctx, tn))
	require.NoError(t, healthy.LinkTenant(tn.ID()))
	require.NoError(t, userRepo.Update(ctx, healthy))

	// Link a user to a tenant id that does not exist.
	broken := createTestUser(t, userRepo)
	require.NoError(t, broken.LinkTenant(uuid.New()))
	require.NoError(t, userRepo.Update(ctx, broken))

	// No link at all is fine.
	createTestUser(t, userRepo)

	got, err := userRepo.ListWithBrokenTenantLink(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, broken.ID(), got[0].ID())
}

func TestOnboardingRepositoryRoundTrip(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewOnboardingRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	userID := uuid.New()
	p, err := onboarding.NewProgress(userID)
	require.NoError(t, err)
	p.SetMetadata("plan", "starter")
	require.NoError(t, repo.Create(ctx, p))

	loaded, err := repo.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusNotStarted, loaded.Status())
	assert.Equal(t, "starter", loaded.Metadata()["plan"])

	require.NoError(t, loaded.Advance(onboarding.StatusBusinessInfo))
	require.NoError(t, loaded.BindTenant(uuid.New()))
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusBusinessInfo, reloaded.Status())
	_, bound := reloaded.TenantID()
	assert.True(t, bound)
}

func TestCustomerRepositoryWriteScoping(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewCustomerRepository(gdb, logger.NewLogger())

	tenantA := uuid.New()
	tenantB := uuid.New()
	ctxA := tenantctx.WithTenant(context.Background(), tenantA)
	ctxB := tenantctx.WithTenant(context.Background(), tenantB)

	c, err := billing.NewCustomer(tenantA, "Globex", "buyer@globex.test")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctxA, c))

	// Creating under a mismatched request tenant is refused outright.
	other, err := billing.NewCustomer(tenantA, "Initech", "")
	require.NoError(t, err)
	assert.Error(t, repo.Create(ctxB, other))

	// Writes from another tenant's context cannot touch the row.
	require.NoError(t, c.Rename("Globex Corp"))
	assert.ErrorIs(t, repo.Update(ctxB, c), billing.ErrCustomerNotFound)
	assert.ErrorIs(t, repo.Delete(ctxB, c.ID()), billing.ErrCustomerNotFound)

	require.NoError(t, repo.Update(ctxA, c))
	kept, err := repo.GetByID(ctxA, c.ID())
	require.NoError(t, err)
	assert.Equal(t, "Globex Corp", kept.Name())

	require.NoError(t, repo.Delete(ctxA, c.ID()))
	_, err = repo.GetByID(ctxA, c.ID())
	assert.ErrorIs(t, err, billing.ErrCustomerNotFound)
}

func TestInvoiceRepositoryLifecycle(t *testing.T) {
	gdb := setupTestDB(t)
	customerRepo := NewCustomerRepository(gdb, logger.NewLogger())
	invoiceRepo := NewInvoiceRepository(gdb, logger.NewLogger())

	tenantID := uuid.New()
	ctx := tenantctx.WithTenant(context.Background(), tenantID)

	c, err := billing.NewCustomer(tenantID, "Globex", "")
	require.NoError(t, err)
	require.NoError(t, customerRepo.Create(ctx, c))

	inv, err := billing.NewInvoice(tenantID, c.ID(), "INV-0001", 12500, "USD")
	require.NoError(t, err)
	require.NoError(t, invoiceRepo.Create(ctx, inv))

	require.NoError(t, inv.Send())
	require.NoError(t, invoiceRepo.Update(ctx, inv))

	loaded, err := invoiceRepo.GetByID(ctx, inv.ID())
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusSent, loaded.Status())
	require.NotNil(t, loaded.IssuedAt())

	byCustomer, err := invoiceRepo.ListByCustomer(ctx, c.ID())
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)

	// Same invoice number under the same tenant collides.
	dup, err := billing.NewInvoice(tenantID, c.ID(), "INV-0001", 100, "USD")
	require.NoError(t, err)
	assert.Error(t, invoiceRepo.Create(ctx, dup))
}
