package onboarding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	tenantapp "canopy/internal/application/tenant"
	domainOnboarding "canopy/internal/domain/onboarding"
	domainUser "canopy/internal/domain/user"
	"canopy/internal/infrastructure/persistence/models"
	"canopy/internal/infrastructure/repository"
	"canopy/internal/shared/db"
	apperrors "canopy/internal/shared/errors"
	"canopy/internal/shared/logger"
)

type recordingNotifier struct {
	welcomes  []string
	reminders []string
}

func (n *recordingNotifier) SendWelcomeEmail(to, _, _ string) error {
	n.welcomes = append(n.welcomes, to)
	return nil
}

func (n *recordingNotifier) SendOnboardingReminderEmail(to, _, _ string) error {
	n.reminders = append(n.reminders, to)
	return nil
}

type fixture struct {
	service  *Service
	notifier *recordingNotifier
	users    domainUser.Repository
	progress domainOnboarding.Repository
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
	progress := repository.NewOnboardingRepository(gdb, log)
	tx := db.NewTransactionManager(gdb)
	tenantService := tenantapp.NewService(tenants, users, progress, tx, nil, log)
	notifier := &recordingNotifier{}

	return &fixture{
		service:  NewService(progress, users, tenantService, notifier, log),
		notifier: notifier,
		users:    users,
		progress: progress,
	}
}

func (f *fixture) createUser(t *testing.T) *domainUser.User {
	t.Helper()
	u, err := domainUser.NewUser("auth0|"+uuid.NewString(), uuid.NewString()+"@example.com")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	first, err := f.service.Start(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, string(domainOnboarding.StatusNotStarted), first.Status)

	second, err := f.service.Start(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAdvanceFullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	_, err := f.service.Start(ctx, u.ID())
	require.NoError(t, err)

	steps := []AdvanceRequest{
		{Status: "business_info", BusinessName: "Acme Corp"},
		{Status: "subscription", Metadata: map[string]any{"plan": "starter"}},
		{Status: "payment"},
		{Status: "setup"},
		{Status: "complete"},
	}
	for _, step := range steps {
		_, err := f.service.Advance(ctx, u.ID(), step)
		require.NoError(t, err, "advancing to %s", step.Status)
	}

	final, err := f.service.Get(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, string(domainOnboarding.StatusComplete), final.Status)
	require.NotNil(t, final.TenantID)
	assert.Equal(t, "starter", final.Metadata["plan"])

	// Completing delivered exactly one welcome email.
	assert.Equal(t, []string{u.Email()}, f.notifier.welcomes)
}

func TestAdvanceRejectsSkippedStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	_, err := f.service.Start(ctx, u.ID())
	require.NoError(t, err)

	_, err = f.service.Advance(ctx, u.ID(), AdvanceRequest{Status: "payment"})
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestAdvanceBusinessInfoRequiresName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	_, err := f.service.Start(ctx, u.ID())
	require.NoError(t, err)

	_, err = f.service.Advance(ctx, u.ID(), AdvanceRequest{Status: "business_info"})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestAdvanceUnknownStatus(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t)

	_, err := f.service.Advance(context.Background(), u.ID(), AdvanceRequest{Status: "enlightenment"})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestRepairRebindsMismatchedProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t)

	_, err := f.service.Start(ctx, u.ID())
	require.NoError(t, err)
	_, err = f.service.Advance(ctx, u.ID(), AdvanceRequest{Status: "business_info", BusinessName: "Acme"})
	require.NoError(t, err)

	// Break the binding behind the service's back.
	p, err := f.progress.GetByUser(ctx, u.ID())
	require.NoError(t, err)
	require.NoError(t, p.RebindTenant(uuid.New()))
	require.NoError(t, f.progress.Update(ctx, p))

	// Report-only first.
	report, err := f.service.Repair(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)

	report, err = f.service.Repair(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rebound)

	fixed, err := f.service.Get(ctx, u.ID())
	require.NoError(t, err)
	linked, _ := f.users.GetByID(ctx, u.ID())
	want, ok := linked.TenantID()
	require.True(t, ok)
	require.NotNil(t, fixed.TenantID)
	assert.Equal(t, want, *fixed.TenantID)

	// Clean state: nothing left to repair.
	report, err = f.service.Repair(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}
