package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.DeviceFlowClient = (*DeviceClient)(nil)

const (
	deviceCodeGrant  = "urn:ietf:params:oauth:grant-type:device_code"
	refreshGrant     = "refresh_token"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20
)

// Config holds the identity provider endpoints and client registration.
type Config struct {
	DeviceCodeURL string
	TokenURL      string
	UserInfoURL   string
	ClientID      string
	ClientSecret  string
	Audience      string
	Scope         string
}

// ConfigFrom resolves endpoints from auth settings.
func ConfigFrom(a domain.AuthSettings) Config {
	return Config{
		DeviceCodeURL: a.DeviceCodeEndpoint(),
		TokenURL:      a.TokenEndpoint(),
		UserInfoURL:   a.UserInfoEndpoint(),
		ClientID:      a.ClientID,
		ClientSecret:  a.ClientSecret,
		Audience:      a.Audience,
		Scope:         a.Scope,
	}
}

// DeviceClient performs the device code, token poll and refresh exchanges.
type DeviceClient struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

// NewDeviceClient creates a device flow client. A nil httpClient uses a
// client with a 30 second timeout.
func NewDeviceClient(cfg Config, httpClient *http.Client) *DeviceClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &DeviceClient{cfg: cfg, http: httpClient, now: time.Now}
}

// deviceCodeResponse is the body of a successful device code request.
type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// tokenResponse is either a token grant or a protocol error.
type tokenResponse struct {
	AccessToken  *string `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	IDToken      string  `json:"id_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (r *tokenResponse) credential() *domain.Credential {
	return &domain.Credential{
		AccessToken:  *r.AccessToken,
		RefreshToken: r.RefreshToken,
		IDToken:      r.IDToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
	}
}

// description prefers error_description and falls back to the error code.
func (r *tokenResponse) description() string {
	if r.ErrorDescription != "" {
		return r.ErrorDescription
	}
	return r.Error
}

// RequestDeviceCode starts a device authorization attempt.
func (c *DeviceClient) RequestDeviceCode(ctx context.Context) (*domain.DeviceSession, error) {
	data := url.Values{}
	data.Set("client_id", c.cfg.ClientID)
	if c.cfg.Audience != "" {
		data.Set("audience", c.cfg.Audience)
	}
	if c.cfg.Scope != "" {
		data.Set("scope", c.cfg.Scope)
	}

	status, body, err := c.postForm(ctx, c.cfg.DeviceCodeURL, data)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, domain.NewAuthError(domain.AuthErrNetwork, "HTTP %d: %s", status, body)
	}

	var resp deviceCodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewAuthError(domain.AuthErrInvalidResponse, "decode device code response: %v", err)
	}
	if resp.DeviceCode == "" {
		return nil, domain.NewAuthError(domain.AuthErrInvalidResponse, "device code response has no device_code")
	}

	return &domain.DeviceSession{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		ExpiresAt:               c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Interval:                time.Duration(resp.Interval) * time.Second,
	}, nil
}

// PollToken makes a single token request for deviceCode.
func (c *DeviceClient) PollToken(ctx context.Context, deviceCode string) (domain.PollResult, error) {
	data := url.Values{}
	data.Set("grant_type", deviceCodeGrant)
	data.Set("device_code", deviceCode)
	data.Set("client_id", c.cfg.ClientID)
	c.setClientSecret(data)

	resp, err := c.exchange(ctx, data)
	if err != nil {
		return domain.PollResult{}, err
	}
	if resp.AccessToken != nil {
		return domain.PollResult{Outcome: domain.PollSuccess, Credential: resp.credential()}, nil
	}

	switch resp.Error {
	case "authorization_pending":
		return domain.PollResult{Outcome: domain.PollPending}, nil
	case "slow_down":
		return domain.PollResult{Outcome: domain.PollSlowDown}, nil
	case "access_denied":
		return domain.PollResult{}, domain.NewAuthError(domain.AuthErrAccessDenied, "%s", resp.description())
	case "expired_token":
		return domain.PollResult{}, domain.NewAuthError(domain.AuthErrExpiredToken, "%s", resp.description())
	default:
		return domain.PollResult{}, domain.NewAuthError(domain.AuthErrUnknown, "%s", resp.description())
	}
}

// RefreshToken exchanges refreshToken for a new credential. Any protocol
// error is reported with the Unknown kind.
func (c *DeviceClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.Credential, error) {
	data := url.Values{}
	data.Set("grant_type", refreshGrant)
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)
	data.Set("refresh_token", refreshToken)

	resp, err := c.exchange(ctx, data)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == nil {
		return nil, domain.NewAuthError(domain.AuthErrUnknown, "%s", resp.description())
	}
	return resp.credential(), nil
}

// exchange posts to the token endpoint and decodes the tagged response.
func (c *DeviceClient) exchange(ctx context.Context, data url.Values) (*tokenResponse, error) {
	status, body, err := c.postForm(ctx, c.cfg.TokenURL, data)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewAuthError(domain.AuthErrInvalidResponse, "HTTP %d: %v", status, err)
	}
	if resp.AccessToken == nil && resp.Error == "" {
		return nil, domain.NewAuthError(domain.AuthErrInvalidResponse, "HTTP %d: response has neither access_token nor error", status)
	}
	return &resp, nil
}

func (c *DeviceClient) postForm(ctx context.Context, endpoint string, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, domain.NewAuthError(domain.AuthErrNetwork, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, domain.NewAuthError(domain.AuthErrNetwork, "%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, domain.NewAuthError(domain.AuthErrNetwork, "read response: %v", err)
	}
	return resp.StatusCode, body, nil
}


// setClientSecret adds client_secret only when one is configured.
func (c *DeviceClient) setClientSecret(data url.Values) {
	if c.cfg.ClientSecret != "" {
		data.Set("client_secret", c.cfg.ClientSecret)
	}
}
