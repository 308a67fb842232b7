package services

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/logger"
)

// Authenticator is the startup task that signs the user in and publishes
// each step into SharedState.
type Authenticator struct {
	session  driving.SessionService
	profiles driven.ProfileClient
	state    *SharedState
	log      logger.Logger
}

// NewAuthenticator creates the startup auth task. profiles may be nil.
func NewAuthenticator(session driving.SessionService, profiles driven.ProfileClient, state *SharedState) *Authenticator {
	return &Authenticator{
		session:  session,
		profiles: profiles,
		state:    state,
		log:      logger.Named("auth"),
	}
}

// Run moves through Checking, NeedsAuth (published by the session manager),
// Authenticating and Authenticated. A failure is published as the
// persistent AuthFailed state and returned.
func (a *Authenticator) Run(ctx context.Context) error {
	a.state.PublishAuthState(domain.AuthState{Phase: domain.AuthChecking})

	cred, err := a.session.GetValidCredential(ctx)
	if err != nil {
		a.log.Error("authentication failed: %v", err)
		a.state.PublishAuthState(domain.FailedState(err))
		return err
	}
	a.state.SetCredential(cred)
	a.state.PublishAuthState(domain.AuthState{Phase: domain.AuthAuthenticating})

	profile := &domain.UserProfile{}
	if a.profiles != nil {
		p, err := a.profiles.GetProfile(ctx, *cred)
		if err != nil {
			a.log.Warn("fetch profile: %v", err)
		} else {
			profile = p
		}
	}

	a.log.Info("signed in as %s", profile.DisplayName())
	a.state.PublishAuthState(domain.AuthenticatedState(profile))
	return nil
}
