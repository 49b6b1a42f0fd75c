// Package tenant orchestrates tenant lifecycle: the single creation path,
// resolution of a user's tenant, and consolidation of duplicate tenants.
package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	domainOnboarding "canopy/internal/domain/onboarding"
	domainTenant "canopy/internal/domain/tenant"
	domainUser "canopy/internal/domain/user"
	"canopy/internal/shared/db"
	apperrors "canopy/internal/shared/errors"
	"canopy/internal/shared/logger"
)

// resolutionCache invalidates cached user-to-tenant resolutions when a
// binding changes. Satisfied by the redis tenant cache; nil disables it.
type resolutionCache interface {
	Invalidate(ctx context.Context, userUUID string) error
	InvalidateUsers(ctx context.Context, userUUIDs []string) error
}

// Service is the only component allowed to create tenants or write
// users.tenant_id. Every other path goes through it.
type Service struct {
	tenants    domainTenant.Repository
	users      domainUser.Repository
	onboarding domainOnboarding.Repository
	txManager  *db.TransactionManager
	cache      resolutionCache
	logger     logger.Interface
}

func NewService(
	tenants domainTenant.Repository,
	users domainUser.Repository,
	onboardingRepo domainOnboarding.Repository,
	txManager *db.TransactionManager,
	cache resolutionCache,
	log logger.Interface,
) *Service {
	return &Service{
		tenants:    tenants,
		users:      users,
		onboarding: onboardingRepo,
		txManager:  txManager,
		cache:      cache,
		logger:     log,
	}
}

// normalizeName applies NFC and collapses interior whitespace so visually
// identical names compare equal.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// EnsureTenantForUser is the single tenant creation path. Idempotent: if
// the user already resolves to a tenant, that tenant is returned and no
// row is created. Creation, the owner linkage, and the onboarding binding
// commit in one transaction.
func (s *Service) EnsureTenantForUser(ctx context.Context, userID uuid.UUID, name string) (*TenantResponse, error) {
	existing, err := s.Resolve(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainTenant.ErrNotFound) {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainUser.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return nil, err
	}

	t, err := domainTenant.NewTenant(normalizeName(name), userID)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	err = s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tenants.Create(txCtx, t); err != nil {
			return err
		}
		if err := u.LinkTenant(t.ID()); err != nil {
			return err
		}
		if err := u.SetRole(domainUser.RoleOwner); err != nil {
			return err
		}
		if err := s.users.Update(txCtx, u); err != nil {
			return err
		}

		progress, err := s.onboarding.GetByUser(txCtx, userID)
		if err != nil {
			if errors.Is(err, domainOnboarding.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := progress.BindTenant(t.ID()); err != nil {
			return err
		}
		return s.onboarding.Update(txCtx, progress)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Infow("tenant created", "tenant_id", t.ID(), "owner_id", userID)
	return toResponse(t), nil
}

// Resolve finds the tenant a user belongs to: the explicit link first,
// then ownership (newest tenant wins), otherwise ErrNotFound. A stale
// link pointing at a vanished tenant is repaired from ownership.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID) (*TenantResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if tenantID, ok := u.TenantID(); ok {
		t, err := s.tenants.GetByID(ctx, tenantID)
		if err == nil {
			return toResponse(t), nil
		}
		if !errors.Is(err, domainTenant.ErrNotFound) {
			return nil, err
		}
		s.logger.Warnw("user tenant link is stale", "user_id", userID, "tenant_id", tenantID)
	}

	owned, err := s.tenants.GetByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, domainTenant.ErrNotFound
	}

	// GetByOwner orders newest first.
	t := owned[0]
	if err := u.LinkTenant(t.ID()); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.logger.Infow("repaired user tenant link", "user_id", userID, "tenant_id", t.ID())
	return toResponse(t), nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainTenant.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("tenant not found")
		}
		return nil, err
	}
	return toResponse(t), nil
}

// Rename changes a tenant's display name. Only the owner may rename.
func (s *Service) Rename(ctx context.Context, id, callerID uuid.UUID, req RenameTenantRequest) (*TenantResponse, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainTenant.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("tenant not found")
		}
		return nil, err
	}
	if !t.IsOwnedBy(callerID) {
		return nil, apperrors.NewForbiddenError("only the tenant owner may rename it")
	}
	if err := t.Rename(normalizeName(req.Name)); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return toResponse(t), nil
}

// Deactivate soft-disables a tenant and unlinks its users so resolution
// stops landing on it.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainTenant.ErrNotFound) {
			return apperrors.NewNotFoundError("tenant not found")
		}
		return err
	}

	var unlinked []string
	err = s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		t.Deactivate()
		if err := s.tenants.Update(txCtx, t); err != nil {
			return err
		}
		members, err := s.users.ListByTenant(txCtx, id)
		if err != nil {
			return err
		}
		for _, m := range members {
			m.UnlinkTenant()
			if err := s.users.Update(txCtx, m); err != nil {
				return err
			}
			unlinked = append(unlinked, m.ID().String())
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.cache != nil && len(unlinked) > 0 {
		if err := s.cache.InvalidateUsers(ctx, unlinked); err != nil {
			s.logger.Warnw("failed to invalidate tenant cache", "error", err)
		}
	}
	s.logger.Infow("tenant deactivated", "tenant_id", id, "users_unlinked", len(unlinked))
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID.String()); err != nil {
		s.logger.Warnw("failed to invalidate tenant cache", "error", err, "user_id", userID)
	}
}

func toResponse(t *domainTenant.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:         t.ID(),
		Name:       t.Name(),
		OwnerID:    t.OwnerID(),
		IsActive:   t.IsActive(),
		RLSEnabled: t.RLSEnabled(),
		CreatedAt:  t.CreatedAt(),
		UpdatedAt:  t.UpdatedAt(),
	}
}
