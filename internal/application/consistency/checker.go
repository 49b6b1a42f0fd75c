// Package consistency audits the invariants the tenant model depends on:
// user links point at live tenants, onboarding bindings agree with user
// links, and RLS covers every scoped table. Check reports; with repair it
// also fixes what it safely can.
package consistency

import (
	"context"
	"errors"

	"gorm.io/gorm"

	onboardingapp "canopy/internal/application/onboarding"
	domainTenant "canopy/internal/domain/tenant"
	domainUser "canopy/internal/domain/user"
	"canopy/internal/infrastructure/database"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

// BrokenLink is one user whose tenant_id points nowhere.
type BrokenLink struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Repaired bool   `json:"repaired"`
}

// Report is the outcome of a consistency pass.
type Report struct {
	Repair            bool                        `json:"repair"`
	BrokenLinks       []BrokenLink                `json:"broken_links"`
	Onboarding        *onboardingapp.RepairReport `json:"onboarding"`
	RLS               *database.VerifyReport      `json:"rls"`
	MultiTenantOwners int                         `json:"multi_tenant_owners"`
}

// Healthy reports whether nothing needs attention.
func (r *Report) Healthy() bool {
	if len(r.BrokenLinks) > 0 || r.MultiTenantOwners > 0 {
		return false
	}
	if r.Onboarding != nil && r.Onboarding.Checked > r.Onboarding.Skipped {
		if !r.Repair || r.Onboarding.Rebound < r.Onboarding.Checked-r.Onboarding.Skipped {
			return false
		}
	}
	return r.RLS == nil || r.RLS.OK()
}

type Checker struct {
	users       domainUser.Repository
	tenants     domainTenant.Repository
	onboarding  *onboardingapp.Service
	policies    *database.PolicyManager
	maintenance *gorm.DB
	logger      logger.Interface
}

func NewChecker(
	users domainUser.Repository,
	tenants domainTenant.Repository,
	onboarding *onboardingapp.Service,
	policies *database.PolicyManager,
	maintenance *gorm.DB,
	log logger.Interface,
) *Checker {
	return &Checker{
		users:       users,
		tenants:     tenants,
		onboarding:  onboarding,
		policies:    policies,
		maintenance: maintenance,
		logger:      log,
	}
}

// Check runs the full audit. With repair, broken user links are resolved
// from ownership (or unlinked when the user owns nothing) and mismatched
// onboarding rows are rebound.
func (c *Checker) Check(ctx context.Context, repair bool) (*Report, error) {
	if c.maintenance != nil {
		ctx = db.WithSession(ctx, c.maintenance)
	}

	report := &Report{Repair: repair}

	broken, err := c.users.ListWithBrokenTenantLink(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range broken {
		link := BrokenLink{UserID: u.ID().String()}
		if tenantID, ok := u.TenantID(); ok {
			link.TenantID = tenantID.String()
		}
		if repair {
			if err := c.repairLink(ctx, u); err != nil {
				return nil, err
			}
			link.Repaired = true
		}
		report.BrokenLinks = append(report.BrokenLinks, link)
	}

	onboardingReport, err := c.onboarding.Repair(ctx, repair)
	if err != nil {
		return nil, err
	}
	report.Onboarding = onboardingReport

	owners, err := c.tenants.ListOwnersWithMultipleTenants(ctx)
	if err != nil {
		return nil, err
	}
	report.MultiTenantOwners = len(owners)

	if c.policies != nil {
		rlsReport, err := c.policies.Verify(ctx)
		if err != nil {
			return nil, err
		}
		report.RLS = rlsReport
	}

	c.logger.Infow("consistency check finished",
		"repair", repair,
		"broken_links", len(report.BrokenLinks),
		"onboarding_mismatches", report.Onboarding.Checked,
		"multi_tenant_owners", report.MultiTenantOwners,
		"healthy", report.Healthy())
	return report, nil
}

func (c *Checker) repairLink(ctx context.Context, u *domainUser.User) error {
	owned, err := c.tenants.GetByOwner(ctx, u.ID())
	if err != nil {
		return err
	}
	if len(owned) > 0 {
		if err := u.LinkTenant(owned[0].ID()); err != nil {
			return err
		}
	} else {
		u.UnlinkTenant()
	}
	if err := c.users.Update(ctx, u); err != nil {
		if errors.Is(err, domainUser.ErrNotFound) {
			return nil
		}
		return err
	}
	c.logger.Infow("repaired broken tenant link", "user_id", u.ID())
	return nil
}
