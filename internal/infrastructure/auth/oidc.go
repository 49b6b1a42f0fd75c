package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"canopy/internal/shared/config"
)

const (
	// httpClientTimeout bounds requests to the identity provider.
	httpClientTimeout = 30 * time.Second
)

// OIDCClient drives the authorization-code login flow against the
// configured identity provider. The provider issues the subject claim that
// users are keyed by; passwords never touch this service.
type OIDCClient struct {
	config      *oauth2.Config
	userInfoURL string
}

// IdentityInfo is the provider's view of the authenticated user.
type IdentityInfo struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

type userInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
	Picture       string `json:"picture"`
}

func NewOIDCClient(cfg *config.OIDCConfig) *OIDCClient {
	return &OIDCClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// GetAuthURL builds the provider redirect URL with PKCE, returning the
// code verifier the callback exchange must present.
func (c *OIDCClient) GetAuthURL(state string) (string, string, error) {
	codeVerifier, codeChallenge, err := generatePKCEParams()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate PKCE parameters: %w", err)
	}

	authURL := c.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	return authURL, codeVerifier, nil
}

func (c *OIDCClient) ExchangeCode(ctx context.Context, code string, codeVerifier string) (string, error) {
	token, err := c.config.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	return token.AccessToken, nil
}

func (c *OIDCClient) GetIdentity(ctx context.Context, accessToken string) (*IdentityInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: httpClientTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get user info: status %d, body: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("identity provider returned no subject")
	}

	name := info.Name
	if name == "" {
		name = info.Nickname
	}

	return &IdentityInfo{
		Subject:       info.Sub,
		Email:         info.Email,
		Name:          name,
		EmailVerified: info.EmailVerified,
	}, nil
}
