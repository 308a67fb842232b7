package driven

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// DeviceFlowClient performs the three OAuth2 device grant HTTP exchanges.
// Failures are returned as *domain.AuthError.
type DeviceFlowClient interface {
	// RequestDeviceCode starts a new authorization attempt.
	RequestDeviceCode(ctx context.Context) (*domain.DeviceSession, error)

	// PollToken makes one token request for the device code.
	// Pending and slow_down answers are returned as outcomes, not errors.
	PollToken(ctx context.Context, deviceCode string) (domain.PollResult, error)

	// RefreshToken exchanges a refresh token for a new credential.
	// The returned RefreshToken is empty when the server did not rotate it.
	RefreshToken(ctx context.Context, refreshToken string) (*domain.Credential, error)
}

// ProfileClient resolves the signed-in user's profile.
type ProfileClient interface {
	// GetProfile returns the profile for the credential.
	GetProfile(ctx context.Context, cred domain.Credential) (*domain.UserProfile, error)
}
