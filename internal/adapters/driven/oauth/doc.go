// Package oauth implements the OAuth2 device authorization grant against
// an Auth0-style identity provider, plus the userinfo lookup.
//
// All three token exchanges are form-encoded POSTs. Poll and refresh
// responses are decoded by shape: a body carrying access_token is a
// success, a body carrying error is a protocol error, regardless of the
// HTTP status.
package oauth
