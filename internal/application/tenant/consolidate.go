package tenant

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainOnboarding "canopy/internal/domain/onboarding"
	domainTenant "canopy/internal/domain/tenant"
	domainUser "canopy/internal/domain/user"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

// scopedTables are the tables whose rows move to the winner during a
// merge.
var scopedTables = []string{constants.TableCustomers, constants.TableInvoices}

// Consolidator repairs owners that ended up with several tenants: it
// picks a winner per owner, moves scoped rows and user links onto it, and
// soft-deletes the rest. All reads and writes run on the maintenance
// connection, which bypasses RLS.
type Consolidator struct {
	tenants     domainTenant.Repository
	users       domainUser.Repository
	onboarding  domainOnboarding.Repository
	txManager   *db.TransactionManager
	cache       resolutionCache
	maintenance *gorm.DB
	logger      logger.Interface
}

func NewConsolidator(
	tenants domainTenant.Repository,
	users domainUser.Repository,
	onboardingRepo domainOnboarding.Repository,
	txManager *db.TransactionManager,
	cache resolutionCache,
	maintenance *gorm.DB,
	log logger.Interface,
) *Consolidator {
	return &Consolidator{
		tenants:     tenants,
		users:       users,
		onboarding:  onboardingRepo,
		txManager:   txManager,
		cache:       cache,
		maintenance: maintenance,
		logger:      log,
	}
}

// Consolidate runs one pass over every owner holding multiple tenants.
// With dryRun the report describes what would happen and nothing is
// written.
func (c *Consolidator) Consolidate(ctx context.Context, dryRun bool) (*ConsolidationReport, error) {
	if c.maintenance != nil {
		ctx = db.WithSession(ctx, c.maintenance)
	}

	owners, err := c.tenants.ListOwnersWithMultipleTenants(ctx)
	if err != nil {
		return nil, err
	}

	report := &ConsolidationReport{DryRun: dryRun}
	for _, ownerID := range owners {
		move, err := c.consolidateOwner(ctx, ownerID, dryRun)
		if err != nil {
			c.logger.Errorw("consolidation failed for owner", "owner_id", ownerID, "error", err)
			return nil, err
		}
		if move != nil {
			report.Moves = append(report.Moves, *move)
		}
	}
	return report, nil
}

// ConsolidateOwner runs consolidation for a single owner.
func (c *Consolidator) ConsolidateOwner(ctx context.Context, ownerID uuid.UUID, dryRun bool) (*ConsolidationReport, error) {
	if c.maintenance != nil {
		ctx = db.WithSession(ctx, c.maintenance)
	}

	report := &ConsolidationReport{DryRun: dryRun}
	move, err := c.consolidateOwner(ctx, ownerID, dryRun)
	if err != nil {
		return nil, err
	}
	if move != nil {
		report.Moves = append(report.Moves, *move)
	}
	return report, nil
}

func (c *Consolidator) consolidateOwner(ctx context.Context, ownerID uuid.UUID, dryRun bool) (*ConsolidationMove, error) {
	owned, err := c.tenants.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(owned) < 2 {
		return nil, nil
	}

	winner, losers, err := c.pickWinner(ctx, owned)
	if err != nil {
		return nil, err
	}

	move := &ConsolidationMove{OwnerID: ownerID, WinnerID: winner.ID()}
	var relink []string

	for _, loser := range losers {
		move.LoserIDs = append(move.LoserIDs, loser.ID())
		for _, table := range scopedTables {
			n, err := c.tenants.CountScopedRows(ctx, table, loser.ID())
			if err != nil {
				return nil, err
			}
			move.RowsReassigned += n
		}
		members, err := c.users.ListByTenant(ctx, loser.ID())
		if err != nil {
			return nil, err
		}
		move.UsersRelinked += len(members)
		for _, m := range members {
			relink = append(relink, m.ID().String())
		}
	}

	if dryRun {
		return move, nil
	}

	err = c.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		for _, loser := range losers {
			for _, table := range scopedTables {
				if _, err := c.tenants.ReassignScopedRows(txCtx, table, loser.ID(), winner.ID()); err != nil {
					return err
				}
			}

			members, err := c.users.ListByTenant(txCtx, loser.ID())
			if err != nil {
				return err
			}
			for _, m := range members {
				if err := m.LinkTenant(winner.ID()); err != nil {
					return err
				}
				if err := c.users.Update(txCtx, m); err != nil {
					return err
				}
			}

			bound, err := c.onboarding.ListByTenant(txCtx, loser.ID())
			if err != nil {
				return err
			}
			for _, p := range bound {
				if err := p.RebindTenant(winner.ID()); err != nil {
					return err
				}
				if err := c.onboarding.Update(txCtx, p); err != nil {
					return err
				}
			}

			if err := c.tenants.SoftDelete(txCtx, loser.ID()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil && len(relink) > 0 {
		if err := c.cache.InvalidateUsers(ctx, relink); err != nil {
			c.logger.Warnw("failed to invalidate tenant cache after consolidation", "error", err)
		}
	}

	c.logger.Infow("owner consolidated",
		"owner_id", ownerID,
		"winner_id", winner.ID(),
		"losers", len(losers),
		"rows_reassigned", move.RowsReassigned,
		"users_relinked", move.UsersRelinked)
	return move, nil
}

// pickWinner chooses the tenant with the most scoped rows; ties go to the
// oldest tenant so the original survives.
func (c *Consolidator) pickWinner(ctx context.Context, owned []*domainTenant.Tenant) (*domainTenant.Tenant, []*domainTenant.Tenant, error) {
	type scored struct {
		t    *domainTenant.Tenant
		rows int64
	}

	scores := make([]scored, 0, len(owned))
	for _, t := range owned {
		var total int64
		for _, table := range scopedTables {
			n, err := c.tenants.CountScopedRows(ctx, table, t.ID())
			if err != nil {
				return nil, nil, err
			}
			total += n
		}
		scores = append(scores, scored{t: t, rows: total})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].rows != scores[j].rows {
			return scores[i].rows > scores[j].rows
		}
		return scores[i].t.CreatedAt().Before(scores[j].t.CreatedAt())
	})

	winner := scores[0].t
	losers := make([]*domainTenant.Tenant, 0, len(scores)-1)
	for _, s := range scores[1:] {
		losers = append(losers, s.t)
	}
	return winner, losers, nil
}
