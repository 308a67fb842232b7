package domain

import "time"

// ExpiryMargin is the remaining lifetime below which a credential is treated
// as expired, so no network call starts with a token that lapses mid-flight.
const ExpiryMargin = 300 * time.Second

// Credential is the locally held token set plus its computed expiry.
// It is persisted as a single JSON object; ExpiresAt is a unix timestamp.
//
// A Credential is never mutated in place once issued: refreshing produces a
// new value that supersedes the old one.
type Credential struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens. May be empty.
	RefreshToken string `json:"refresh_token"`
	// IDToken is the OpenID Connect identity token, if one was issued.
	IDToken string `json:"id_token"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// ExpiresIn is the lifetime in seconds reported by the server.
	ExpiresIn int64 `json:"expires_in"`
	// ExpiresAt is issue time + ExpiresIn, in unix seconds.
	ExpiresAt int64 `json:"expires_at"`
}

// IssuedAt recomputes ExpiresAt from the issue instant and ExpiresIn.
func (c *Credential) IssuedAt(t time.Time) {
	c.ExpiresAt = t.Unix() + c.ExpiresIn
}

// Expiry returns ExpiresAt as a time.
func (c *Credential) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// IsExpired reports whether fewer than ExpiryMargin seconds remain.
func (c *Credential) IsExpired() bool {
	return c.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether fewer than ExpiryMargin seconds remain at now.
// Exactly ExpiryMargin seconds remaining is still valid.
func (c *Credential) IsExpiredAt(now time.Time) bool {
	remaining := c.ExpiresAt - now.Unix()
	return remaining < int64(ExpiryMargin/time.Second)
}

// CanRefresh returns true if a refresh token is available.
// A credential without one cannot be silently renewed.
func (c *Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// IsAuthenticated returns true if the credential carries an access token.
func (c *Credential) IsAuthenticated() bool {
	return c.AccessToken != ""
}
