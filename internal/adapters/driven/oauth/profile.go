package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.ProfileClient = (*ProfileClient)(nil)

// ProfileClient reads the user profile from the userinfo endpoint and
// falls back to the id_token claims when that fails.
type ProfileClient struct {
	userInfoURL string
	http        *http.Client
}

// NewProfileClient creates a profile client. A nil httpClient uses a
// client with a 30 second timeout.
func NewProfileClient(cfg Config, httpClient *http.Client) *ProfileClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &ProfileClient{userInfoURL: cfg.UserInfoURL, http: httpClient}
}

// GetProfile returns the profile for cred.
func (c *ProfileClient) GetProfile(ctx context.Context, cred domain.Credential) (*domain.UserProfile, error) {
	profile, err := c.userInfo(ctx, cred.AccessToken)
	if err == nil {
		return profile, nil
	}
	if cred.IDToken == "" {
		return nil, err
	}

	claims, claimErr := ProfileFromIDToken(cred.IDToken)
	if claimErr != nil {
		return nil, errors.Join(err, claimErr)
	}
	return claims, nil
}

func (c *ProfileClient) userInfo(ctx context.Context, accessToken string) (*domain.UserProfile, error) {
	if c.userInfoURL == "" {
		return nil, errors.New("userinfo endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: HTTP %d: %s", resp.StatusCode, body)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}

// idTokenClaims are the OIDC profile claims carried by the id_token.
type idTokenClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// ProfileFromIDToken extracts profile claims without verifying the
// signature. The token came straight from the token endpoint over TLS.
func ProfileFromIDToken(idToken string) (*domain.UserProfile, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	return &domain.UserProfile{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	}, nil
}
