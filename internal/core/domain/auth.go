package domain

// AuthPhase names the authentication state shown to the user.
type AuthPhase int

const (
	// AuthChecking means the stored credential is being inspected.
	AuthChecking AuthPhase = iota
	// AuthNeedsAuth means a device code is waiting for the user.
	AuthNeedsAuth
	// AuthAuthenticating means the token has been issued and the profile is loading.
	AuthAuthenticating
	// AuthAuthenticated means a usable session exists.
	AuthAuthenticated
	// AuthFailed is persistent until restart.
	AuthFailed
)

// String returns the phase name.
func (p AuthPhase) String() string {
	switch p {
	case AuthChecking:
		return "checking"
	case AuthNeedsAuth:
		return "needs_auth"
	case AuthAuthenticating:
		return "authenticating"
	case AuthAuthenticated:
		return "authenticated"
	default:
		return "failed"
	}
}

// AuthState is the observable authentication state.
// Only the fields relevant to Phase are set.
type AuthState struct {
	Phase AuthPhase
	// VerificationURI, VerificationURIComplete and UserCode are set in AuthNeedsAuth.
	VerificationURI         string
	VerificationURIComplete string
	UserCode                string
	// Profile is set in AuthAuthenticated.
	Profile *UserProfile
	// Err is set in AuthFailed.
	Err string
}

// NeedsAuthState builds the state shown while a device session is pending.
func NeedsAuthState(s *DeviceSession) AuthState {
	return AuthState{
		Phase:                   AuthNeedsAuth,
		VerificationURI:         s.VerificationURI,
		VerificationURIComplete: s.VerificationURIComplete,
		UserCode:                s.UserCode,
	}
}

// AuthenticatedState builds the state for a signed-in user.
func AuthenticatedState(p *UserProfile) AuthState {
	return AuthState{Phase: AuthAuthenticated, Profile: p}
}

// FailedState builds the persistent failure state.
func FailedState(err error) AuthState {
	return AuthState{Phase: AuthFailed, Err: err.Error()}
}

// UserProfile is the identity of the signed-in user.
type UserProfile struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// DisplayName returns the best human label for the profile.
func (p *UserProfile) DisplayName() string {
	switch {
	case p == nil:
		return ""
	case p.Name != "":
		return p.Name
	case p.Email != "":
		return p.Email
	default:
		return p.Subject
	}
}
