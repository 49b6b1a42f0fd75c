package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"canopy/internal/domain/billing"
	domainTenant "canopy/internal/domain/tenant"
	domainUser "canopy/internal/domain/user"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/infrastructure/repository"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
	"canopy/internal/shared/tenantctx"
)

type fixture struct {
	gdb          *gorm.DB
	service      *Service
	consolidator *Consolidator
	users        domainUser.Repository
	tenants      domainTenant.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.TenantModel{},
		&models.UserModel{},
		&models.OnboardingProgressModel{},
		&models.CustomerModel{},
		&models.InvoiceModel{},
	))

	log := logger.NewLogger()
	tenants := repository.NewTenantRepository(gdb, log)
	users := repository.NewUserRepository(gdb, log)
	onboarding := repository.NewOnboardingRepository(gdb, log)
	tx := db.NewTransactionManager(gdb)

	return &fixture{
		gdb:          gdb,
		service:      NewService(tenants, users, onboarding, tx, nil, log),
		consolidator: NewConsolidator(tenants, users, onboarding, tx, nil, gdb, log),
		users:        users,
		tenants:      tenants,
	}
}

func (f *fixture) createUser(t *testing.T) *domainUser.User {
	t.Helper()
	u, err := domainUser.NewUser("auth0|"+uuid.NewString(), uuid.NewString()+"@example.com")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestEnsureTenantForUserIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	first, err := f.service.EnsureTenantForUser(ctx, u.ID(), "Acme  Corp")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", first.Name)
	assert.Equal(t, u.ID(), first.OwnerID)

	second, err := f.service.EnsureTenantForUser(ctx, u.ID(), "Another Name")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second call must not create another tenant")

	owned, err := f.tenants.GetByOwner(ctx, u.ID())
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	linked, err := f.users.GetByID(ctx, u.ID())
	require.NoError(t, err)
	tenantID, ok := linked.TenantID()
	require.True(t, ok)
	assert.Equal(t, first.ID, tenantID)
	assert.Equal(t, domainUser.RoleOwner, linked.Role())
}

func TestResolvePrefersExplicitLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	// The user owns one tenant but is linked to a different one.
	owned, err := domainTenant.NewTenant("Owned", u.ID())
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(ctx, owned))

	other, err := domainTenant.NewTenant("Linked", uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(ctx, other))

	require.NoError(t, u.LinkTenant(other.ID()))
	require.NoError(t, f.users.Update(ctx, u))

	resolved, err := f.service.Resolve(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, other.ID(), resolved.ID)
}

func TestResolveRepairsStaleLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	owned, err := domainTenant.NewTenant("Owned", u.ID())
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(ctx, owned))

	// Point the link at a tenant that does not exist.
	require.NoError(t, u.LinkTenant(uuid.New()))
	require.NoError(t, f.users.Update(ctx, u))

	resolved, err := f.service.Resolve(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, owned.ID(), resolved.ID)

	repaired, err := f.users.GetByID(ctx, u.ID())
	require.NoError(t, err)
	tenantID, ok := repaired.TenantID()
	require.True(t, ok)
	assert.Equal(t, owned.ID(), tenantID)
}

func TestResolveNoTenant(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t)

	_, err := f.service.Resolve(context.Background(), u.ID())
	assert.ErrorIs(t, err, domainTenant.ErrNotFound)
}

func TestDeactivateUnlinksUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	created, err := f.service.EnsureTenantForUser(ctx, u.ID(), "Acme")
	require.NoError(t, err)

	require.NoError(t, f.service.Deactivate(ctx, created.ID))

	got, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	unlinked, err := f.users.GetByID(ctx, u.ID())
	require.NoError(t, err)
	_, ok := unlinked.TenantID()
	assert.False(t, ok)
}

// seedDuplicateOwner creates an owner with two tenants, putting more
// customer rows on the second.
func seedDuplicateOwner(t *testing.T, f *fixture) (owner *domainUser.User, small, big *domainTenant.Tenant) {
	t.Helper()
	ctx := context.Background()
	owner = f.createUser(t)

	small, err := domainTenant.NewTenant("Small", owner.ID())
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(ctx, small))

	big, err = domainTenant.NewTenant("Big", owner.ID())
	require.NoError(t, err)
	require.NoError(t, f.tenants.Create(ctx, big))

	require.NoError(t, owner.LinkTenant(small.ID()))
	require.NoError(t, f.users.Update(ctx, owner))

	log := logger.NewLogger()
	customers := repository.NewCustomerRepository(f.gdb, log)
	for i, tc := range []struct {
		tenantID uuid.UUID
		count    int
	}{
		{small.ID(), 1},
		{big.ID(), 3},
	} {
		tctx := tenantctx.WithTenant(ctx, tc.tenantID)
		for j := 0; j < tc.count; j++ {
			c, err := billing.NewCustomer(tc.tenantID, uuid.NewString(), "")
			require.NoError(t, err)
			require.NoError(t, customers.Create(tctx, c), "seed %d/%d", i, j)
		}
	}
	return owner, small, big
}

func TestConsolidateDryRunChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, small, big := seedDuplicateOwner(t, f)

	report, err := f.consolidator.Consolidate(ctx, true)
	require.NoError(t, err)
	require.True(t, report.DryRun)
	require.Len(t, report.Moves, 1)

	move := report.Moves[0]
	assert.Equal(t, owner.ID(), move.OwnerID)
	assert.Equal(t, big.ID(), move.WinnerID)
	assert.Equal(t, []uuid.UUID{small.ID()}, move.LoserIDs)
	assert.Equal(t, int64(1), move.RowsReassigned)

	// Both tenants still live.
	_, err = f.tenants.GetByID(ctx, small.ID())
	assert.NoError(t, err)
	_, err = f.tenants.GetByID(ctx, big.ID())
	assert.NoError(t, err)
}

func TestConsolidateMergesIntoWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, small, big := seedDuplicateOwner(t, f)

	report, err := f.consolidator.Consolidate(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Moves, 1)
	assert.Equal(t, big.ID(), report.Moves[0].WinnerID)

	// Loser is gone, its rows now belong to the winner.
	_, err = f.tenants.GetByID(ctx, small.ID())
	assert.ErrorIs(t, err, domainTenant.ErrNotFound)

	count, err := f.tenants.CountScopedRows(ctx, "customers", big.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	relinked, err := f.users.GetByID(ctx, owner.ID())
	require.NoError(t, err)
	tenantID, ok := relinked.TenantID()
	require.True(t, ok)
	assert.Equal(t, big.ID(), tenantID)

	// A second pass finds nothing to do.
	again, err := f.consolidator.Consolidate(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, again.Moves)
}
