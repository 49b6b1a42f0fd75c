// Package onboarding orchestrates the signup flow on top of the progress
// state machine. Step order is enforced by the domain; this service wires
// in the side effects of particular steps: tenant creation at
// business_info and the welcome email at complete.
package onboarding

import (
	"context"
	"errors"

	"github.com/google/uuid"

	tenantapp "canopy/internal/application/tenant"
	domainOnboarding "canopy/internal/domain/onboarding"
	domainUser "canopy/internal/domain/user"
	"canopy/internal/infrastructure/email"
	apperrors "canopy/internal/shared/errors"
	"canopy/internal/shared/logger"
)

type Service struct {
	progress domainOnboarding.Repository
	users    domainUser.Repository
	tenants  *tenantapp.Service
	notifier email.Notifier
	logger   logger.Interface
}

func NewService(
	progress domainOnboarding.Repository,
	users domainUser.Repository,
	tenants *tenantapp.Service,
	notifier email.Notifier,
	log logger.Interface,
) *Service {
	return &Service{
		progress: progress,
		users:    users,
		tenants:  tenants,
		notifier: notifier,
		logger:   log,
	}
}

// Start creates the progress record for a user. Idempotent: an existing
// record is returned as is.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (*ProgressResponse, error) {
	existing, err := s.progress.GetByUser(ctx, userID)
	if err == nil {
		return toResponse(existing), nil
	}
	if !errors.Is(err, domainOnboarding.ErrNotFound) {
		return nil, err
	}

	p, err := domainOnboarding.NewProgress(userID)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.progress.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Infow("onboarding started", "user_id", userID)
	return toResponse(p), nil
}

// Get returns the user's progress.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*ProgressResponse, error) {
	p, err := s.progress.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domainOnboarding.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("onboarding progress not found")
		}
		return nil, err
	}
	return toResponse(p), nil
}

// Advance moves the flow to the requested step. The business_info step
// creates (or resolves) the user's tenant before the transition commits;
// completing triggers the welcome email.
func (s *Service) Advance(ctx context.Context, userID uuid.UUID, req AdvanceRequest) (*ProgressResponse, error) {
	target := domainOnboarding.Status(req.Status)
	if !target.Valid() {
		return nil, apperrors.NewValidationError("unknown onboarding status: " + req.Status)
	}

	if target == domainOnboarding.StatusBusinessInfo {
		if req.BusinessName == "" {
			return nil, apperrors.NewValidationError("business_name is required for the business_info step")
		}
		// Binds the tenant on the progress row inside its own transaction.
		if _, err := s.tenants.EnsureTenantForUser(ctx, userID, req.BusinessName); err != nil {
			return nil, err
		}
	}

	p, err := s.progress.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domainOnboarding.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("onboarding progress not found")
		}
		return nil, err
	}

	if err := p.Advance(target); err != nil {
		var transitionErr *domainOnboarding.TransitionError
		if errors.As(err, &transitionErr) {
			return nil, apperrors.NewConflictError(transitionErr.Error())
		}
		if errors.Is(err, domainOnboarding.ErrTenantNotBound) {
			return nil, apperrors.NewConflictError(err.Error())
		}
		return nil, err
	}
	for k, v := range req.Metadata {
		p.SetMetadata(k, v)
	}
	if err := s.progress.Update(ctx, p); err != nil {
		return nil, err
	}

	if target == domainOnboarding.StatusComplete {
		s.sendWelcome(ctx, userID)
	}

	s.logger.Infow("onboarding advanced", "user_id", userID, "status", target)
	return toResponse(p), nil
}

// sendWelcome delivers the completion email. Delivery failure is logged,
// never surfaced; the transition has already committed.
func (s *Service) sendWelcome(ctx context.Context, userID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warnw("failed to load user for welcome email", "user_id", userID, "error", err)
		return
	}
	tenantName := ""
	if tenantID, ok := u.TenantID(); ok {
		if t, err := s.tenants.Get(ctx, tenantID); err == nil {
			tenantName = t.Name
		}
	}
	if err := s.notifier.SendWelcomeEmail(u.Email(), u.Email(), tenantName); err != nil {
		s.logger.Warnw("failed to send welcome email", "user_id", userID, "error", err)
	}
}

// Repair rebinds progress rows whose tenant disagrees with the owning
// user's tenant. Rows whose user has no tenant are left alone.
func (s *Service) Repair(ctx context.Context, apply bool) (*RepairReport, error) {
	mismatched, err := s.progress.ListMismatched(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Checked: len(mismatched)}
	for _, p := range mismatched {
		u, err := s.users.GetByID(ctx, p.UserID())
		if err != nil {
			report.Skipped++
			s.logger.Warnw("mismatched progress has no user", "progress_id", p.ID(), "error", err)
			continue
		}
		tenantID, ok := u.TenantID()
		if !ok {
			report.Skipped++
			continue
		}
		if !apply {
			report.Rebound++
			continue
		}
		if err := p.RebindTenant(tenantID); err != nil {
			return nil, err
		}
		if err := s.progress.Update(ctx, p); err != nil {
			return nil, err
		}
		report.Rebound++
		s.logger.Infow("onboarding progress rebound", "progress_id", p.ID(), "tenant_id", tenantID)
	}
	return report, nil
}

func toResponse(p *domainOnboarding.Progress) *ProgressResponse {
	resp := &ProgressResponse{
		ID:        p.ID(),
		UserID:    p.UserID(),
		Status:    string(p.Status()),
		Metadata:  p.Metadata(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
	if tenantID, ok := p.TenantID(); ok {
		resp.TenantID = &tenantID
	}
	return resp
}
