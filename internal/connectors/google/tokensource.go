package google

import (
	"golang.org/x/oauth2"
)

// NewTokenSource wraps a bearer access token for Google API clients.
// The recorder refreshes tokens itself, so the source never refreshes.
func NewTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
}
