package driving

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// SessionService owns the credential lifecycle.
type SessionService interface {
	// GetValidCredential returns a credential that is not within the expiry
	// margin, refreshing or running the device flow as needed.
	GetValidCredential(ctx context.Context) (*domain.Credential, error)

	// CredentialForUpload is the non-interactive variant: stored credential,
	// then refresh. It never starts a device flow and returns
	// domain.ErrAuthRequired when the user must log in.
	CredentialForUpload(ctx context.Context) (*domain.Credential, error)

	// Current returns the stored credential without network calls.
	Current(ctx context.Context) (*domain.Credential, error)

	// Logout deletes the persisted credential.
	Logout(ctx context.Context) error
}

// AuthStatePublisher receives authentication state changes.
type AuthStatePublisher interface {
	PublishAuthState(state domain.AuthState)
}
