// Package auth orchestrates login against the external identity provider.
// Passwords never touch this service; the provider authenticates and this
// service maps its subject claim onto a local user and issues API tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainUser "canopy/internal/domain/user"
	infraauth "canopy/internal/infrastructure/auth"
	"canopy/internal/infrastructure/cache"
	apperrors "canopy/internal/shared/errors"
	"canopy/internal/shared/logger"
)

// LoginResult is what a successful callback returns.
type LoginResult struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	UserID       uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	NewUser      bool       `json:"new_user"`
}

type Service struct {
	oidc   *infraauth.OIDCClient
	states *cache.RedisStateStore
	jwt    *infraauth.JWTService
	users  domainUser.Repository
	logger logger.Interface
}

func NewService(
	oidc *infraauth.OIDCClient,
	states *cache.RedisStateStore,
	jwt *infraauth.JWTService,
	users domainUser.Repository,
	log logger.Interface,
) *Service {
	return &Service{
		oidc:   oidc,
		states: states,
		jwt:    jwt,
		users:  users,
		logger: log,
	}
}

// LoginURL builds the provider redirect and stashes the state for the
// callback.
func (s *Service) LoginURL(ctx context.Context) (string, error) {
	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(stateBytes)

	authURL, codeVerifier, err := s.oidc.GetAuthURL(state)
	if err != nil {
		return "", err
	}
	if err := s.states.Set(ctx, state, codeVerifier); err != nil {
		return "", err
	}
	return authURL, nil
}

// HandleCallback completes the flow: validates the one-time state,
// exchanges the code, upserts the user by provider subject, and issues a
// token pair. First-time logins create the local user.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (*LoginResult, error) {
	stateInfo, err := s.states.VerifyAndGet(ctx, state)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired login state")
	}

	accessToken, err := s.oidc.ExchangeCode(ctx, code, stateInfo.CodeVerifier)
	if err != nil {
		s.logger.Warnw("code exchange failed", "error", err)
		return nil, apperrors.NewUnauthorizedError("code exchange failed")
	}

	identity, err := s.oidc.GetIdentity(ctx, accessToken)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("failed to fetch identity")
	}

	newUser := false
	u, err := s.users.GetByAuthSubject(ctx, identity.Subject)
	if err != nil {
		if !errors.Is(err, domainUser.ErrNotFound) {
			return nil, err
		}
		u, err = domainUser.NewUser(identity.Subject, identity.Email)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		newUser = true
		s.logger.Infow("user provisioned from identity provider", "user_id", u.ID(), "subject", identity.Subject)
	}

	tenantClaim := ""
	var tenantID *uuid.UUID
	if id, ok := u.TenantID(); ok {
		tenantClaim = id.String()
		tenantID = &id
	}

	pair, err := s.jwt.Generate(u.ID().String(), u.Email(), tenantClaim, string(u.Role()))
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		UserID:       u.ID(),
		Email:        u.Email(),
		TenantID:     tenantID,
		NewUser:      newUser,
	}, nil
}

// Refresh rotates a refresh token into a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*infraauth.TokenPair, error) {
	pair, err := s.jwt.Refresh(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid refresh token")
	}
	return pair, nil
}
